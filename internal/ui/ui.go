package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// PlaylistLoader fetches the tracked playlists shown in the list view.
type PlaylistLoader func() ([]models.Playlist, error)

// Model represents the TUI application state.
type Model struct {
	ctx              context.Context
	view             ViewState
	load             PlaylistLoader
	engine           *tasks.Engine
	opts             tasks.SyncOpts
	width            int
	height           int
	playlistList     list.Model
	playlists        []models.Playlist
	selectedPlaylist *models.Playlist
	progressChan     chan tasks.ProgressUpdate
	progress         tasks.ProgressUpdate
	summary          *tasks.SyncSummary
	err              error
	help             help.Model
	keys             keyMap
}

// playlistItem wraps [models.Playlist] to implement list.Item.
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Label }
func (i playlistItem) Title() string       { return i.playlist.Label }
func (i playlistItem) Description() string {
	return fmt.Sprintf("%s • %s", i.playlist.Provider, i.playlist.SourceRef)
}

type playlistsLoadedMsg struct {
	playlists []models.Playlist
	err       error
}

type progressUpdateMsg tasks.ProgressUpdate

type syncCompleteMsg struct {
	summary *tasks.SyncSummary
	err     error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, load PlaylistLoader, engine *tasks.Engine, opts tasks.SyncOpts) *Model {
	return &Model{
		ctx:    ctx,
		view:   PlaylistListView,
		load:   load,
		engine: engine,
		opts:   opts,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init initializes the TUI by loading the tracked playlists.
func (m *Model) Init() tea.Cmd {
	return m.loadPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.playlists = msg.playlists
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Tracked Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.summary = msg.summary
		m.err = msg.err
		m.view = ResultView
		if m.progressChan != nil {
			m.progressChan = nil
		}
		return m, nil
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.playlistList.SelectedItem()
		if selected != nil {
			if pl, ok := selected.(playlistItem); ok {
				m.selectedPlaylist = &pl.playlist
				m.view = ConfirmView
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = PlaylistListView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = PlaylistListView
		m.selectedPlaylist = nil
		m.summary = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == PlaylistListView {
		m.playlistList, cmd = m.playlistList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.load()
		return playlistsLoadedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	pl := *m.selectedPlaylist
	progress := m.progressChan
	go func() {
		summary, err := m.engine.Sync(m.ctx, progress, pl, m.opts)
		m.summary = summary
		m.err = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncCompleteMsg{summary: m.summary, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{summary: m.summary, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sync '%s'?", m.selectedPlaylist.Label))
	info := fmt.Sprintf("\nProvider: %s\nReference: %s\n", m.selectedPlaylist.Provider, m.selectedPlaylist.SourceRef)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("Syncing '%s'", m.selectedPlaylist.Label))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSource:
		phase = "Fetching track listing..."
	case tasks.Compare:
		phase = "Reconciling against the ledger..."
	case tasks.JobStart, tasks.JobResult:
		phase = fmt.Sprintf("Downloading tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.JobRetry:
		phase = fmt.Sprintf("Retrying track (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	if m.summary == nil {
		return styles.err.Render("No summary available\n\nPress r to go back, q to quit")
	}

	title := styles.ok.Render("✓ Sync Complete")
	info := fmt.Sprintf(
		"\nPlaylist: %s\nTracks: %d listed, %d already synced\nResult: %d succeeded, %d failed in %s",
		m.summary.Playlist.Label,
		m.summary.Total,
		m.summary.AlreadyDone,
		m.summary.Succeeded,
		m.summary.Failed,
		m.summary.Elapsed.Round(time.Second),
	)

	var failed string
	if m.summary.Failed > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to sync %d tracks:", m.summary.Failed)))
		for _, te := range m.summary.Errors {
			failed += fmt.Sprintf("\n  • %s - %s", te.Track.Artist, te.Track.Title)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
