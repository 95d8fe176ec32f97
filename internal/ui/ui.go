package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibemix/internal/generation"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/tasks"
	"github.com/desertthunder/vibemix/internal/validation"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FormView ViewState = iota
	GeneratingView
	ResultView
	ConfirmView
	PublishingView
)

const (
	emojiField = iota
	countField
	vibeField
)

const (
	defaultSongCount = "20"
	maxFoundRows     = 8
)

// Engine generates and publishes playlists with streamed progress.
type Engine interface {
	GenerateStreaming(ctx context.Context, progress chan<- tasks.ProgressUpdate, req models.PlaylistRequest, opts tasks.GenerateOpts) (*models.PlaylistData, error)
	Publish(ctx context.Context, progress chan<- tasks.ProgressUpdate, playlist *models.PlaylistData) (*models.PlaylistData, error)
}

// Library persists finished playlists.
type Library interface {
	Save(ctx context.Context, playlist *models.PlaylistData, userID string) (string, error)
	MarkPublished(ctx context.Context, id, spotifyURL string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	engine  Engine
	library Library
	userID  string
	width   int
	height  int

	inputs []textinput.Model
	focus  int

	spinner      spinner.Model
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	done         chan playlistResult
	complete     func(*models.PlaylistData, error) Msg
	progress     tasks.ProgressUpdate
	info         *models.PlaylistInfo
	found        []models.Track

	playlist      *models.PlaylistData
	trackList     list.Model
	savedID       string
	libraryStatus string
	spotifyStatus string

	err  error
	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies. library may be nil, which disables saving.
func NewModel(ctx context.Context, engine Engine, library Library, userID string) *Model {
	m := &Model{
		ctx:     ctx,
		view:    FormView,
		engine:  engine,
		library: library,
		userID:  userID,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.focused)),
		bar:     progress.New(progress.WithGradient("#6366F1", "#A855F7")),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.inputs = newInputs()
	return m
}

func newInputs() []textinput.Model {
	inputs := make([]textinput.Model, 3)

	inputs[emojiField] = textinput.New()
	inputs[emojiField].Placeholder = "🌙 ✨ 🌧️"
	inputs[emojiField].Prompt = "Emojis › "
	inputs[emojiField].CharLimit = 64

	inputs[countField] = textinput.New()
	inputs[countField].Placeholder = defaultSongCount
	inputs[countField].Prompt = "Songs  › "
	inputs[countField].CharLimit = 2
	inputs[countField].Validate = func(s string) error {
		if _, err := strconv.Atoi(s); s != "" && err != nil {
			return err
		}
		return nil
	}

	inputs[vibeField] = textinput.New()
	inputs[vibeField].Placeholder = "late night drive through an empty city"
	inputs[vibeField].Prompt = "Vibe   › "
	inputs[vibeField].CharLimit = validation.MaxVibeLength

	inputs[emojiField].Focus()
	return inputs
}

// Init starts the cursor blinking in the form.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(min(msg.Width-4, 60), 10)
		if m.playlist != nil {
			m.trackList.SetSize(msg.Width-4, msg.Height-12)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != GeneratingView && m.view != PublishingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case FormView:
			return m.handleFormKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		default:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == FormView {
		return m.updateInputs(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		switch data := update.Data.(type) {
		case models.PlaylistInfo:
			m.info = &data
		case generation.RoundReport:
			m.found = data.Tracks
		}
		return m, m.waitForProgress()

	case MsgGenerationComplete:
		res := msg.data.(playlistResult)
		m.progressChan, m.done = nil, nil
		if res.err != nil {
			m.err = res.err
			m.view = FormView
			return m, m.inputs[m.focus].Focus()
		}
		m.setPlaylist(res.playlist)
		m.view = ResultView
		return m, nil

	case MsgPublishComplete:
		res := msg.data.(playlistResult)
		m.progressChan, m.done = nil, nil
		m.view = ResultView
		if res.err != nil {
			m.spotifyStatus = styles.err.Render("✗ " + shared.UserMessage(res.err))
			return m, nil
		}
		m.playlist = res.playlist
		m.spotifyStatus = styles.ok.Render("✓ Saved to Spotify: " + res.playlist.SpotifyURL)
		if m.library != nil && m.savedID != "" {
			return m, m.markPublished(m.savedID, res.playlist.SpotifyURL)
		}
		return m, nil

	case MsgSaveComplete:
		res := msg.data.(saveResult)
		if res.err != nil {
			m.libraryStatus = styles.err.Render("✗ " + shared.UserMessage(res.err))
			return m, nil
		}
		m.savedID = res.id
		m.libraryStatus = styles.ok.Render("✓ Saved to library (" + res.id + ")")
		return m, nil
	}
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.exit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		return m, m.setFocus((m.focus + 1) % len(m.inputs))
	case key.Matches(msg, m.keys.prev):
		return m, m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
	case key.Matches(msg, m.keys.submit):
		return m.submit()
	}
	return m.updateInputs(msg)
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.reset()
		return m, m.setFocus(emojiField)
	case key.Matches(msg, m.keys.save):
		switch {
		case m.library == nil:
			m.libraryStatus = styles.warn.Render("Library storage is not configured")
			return m, nil
		case m.savedID != "":
			m.libraryStatus = styles.warn.Render("Already saved (" + m.savedID + ")")
			return m, nil
		}
		return m, m.save()
	case key.Matches(msg, m.keys.publish):
		if m.playlist.IsSpotifyPlaylist {
			m.spotifyStatus = styles.warn.Render("Already on Spotify: " + m.playlist.SpotifyURL)
			return m, nil
		}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = PublishingView
		m.spotifyStatus = ""
		return m, tea.Batch(m.startPublish(), m.spinner.Tick)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = ResultView
	}
	return m, nil
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
			continue
		}
		m.inputs[j].Blur()
	}
	return cmd
}

// request builds a playlist request from the form.
func (m *Model) request() models.PlaylistRequest {
	count := strings.TrimSpace(m.inputs[countField].Value())
	if count == "" {
		count = defaultSongCount
	}
	n, _ := strconv.Atoi(count)
	return models.PlaylistRequest{
		Emojis:    strings.Fields(m.inputs[emojiField].Value()),
		SongCount: n,
		Vibe:      m.inputs[vibeField].Value(),
	}
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	req := m.request()
	if err := validation.ValidateRequest(req).Err(); err != nil {
		m.err = err
		return m, nil
	}

	m.err = nil
	m.info = nil
	m.found = nil
	m.progress = tasks.ProgressUpdate{Total: req.SongCount, Message: "Starting..."}
	m.view = GeneratingView
	return m, tea.Batch(m.startGeneration(req), m.spinner.Tick)
}

func (m *Model) reset() {
	m.view = FormView
	m.playlist = nil
	m.info = nil
	m.found = nil
	m.savedID = ""
	m.libraryStatus = ""
	m.spotifyStatus = ""
	m.err = nil
	m.progress = tasks.ProgressUpdate{}
}

func (m *Model) setPlaylist(p *models.PlaylistData) {
	m.playlist = p
	m.savedID = ""
	m.libraryStatus = ""
	m.spotifyStatus = ""
	m.trackList = list.New(trackItems(p.Tracks), list.NewDefaultDelegate(), 0, 0)
	m.trackList.Title = "Tracks"
	m.trackList.SetShowHelp(false)
	m.trackList.SetSize(max(m.width-4, 20), max(m.height-12, 10))
}

// run starts fn in the background and streams its progress until it returns.
func (m *Model) run(fn func(chan<- tasks.ProgressUpdate) (*models.PlaylistData, error), complete func(*models.PlaylistData, error) Msg) tea.Cmd {
	progressChan := make(chan tasks.ProgressUpdate, 50)
	done := make(chan playlistResult, 1)
	m.progressChan, m.done, m.complete = progressChan, done, complete

	go func() {
		p, err := fn(progressChan)
		done <- playlistResult{p, err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) startGeneration(req models.PlaylistRequest) tea.Cmd {
	return m.run(func(progress chan<- tasks.ProgressUpdate) (*models.PlaylistData, error) {
		return m.engine.GenerateStreaming(m.ctx, progress, req, tasks.GenerateOpts{})
	}, generationCompleteMsg)
}

func (m *Model) startPublish() tea.Cmd {
	playlist := m.playlist
	return m.run(func(progress chan<- tasks.ProgressUpdate) (*models.PlaylistData, error) {
		return m.engine.Publish(m.ctx, progress, playlist)
	}, publishCompleteMsg)
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, done, complete := m.progressChan, m.done, m.complete
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		update, ok := <-progressChan
		if !ok {
			res := <-done
			return complete(res.playlist, res.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) save() tea.Cmd {
	playlist := m.playlist
	return func() tea.Msg {
		id, err := m.library.Save(m.ctx, playlist, m.userID)
		return saveCompleteMsg(id, err)
	}
}

func (m *Model) markPublished(id, url string) tea.Cmd {
	return func() tea.Msg {
		return saveCompleteMsg(id, m.library.MarkPublished(m.ctx, id, url))
	}
}

func (m *Model) percent() float64 {
	if m.progress.Total <= 0 {
		return 0
	}
	return min(float64(m.progress.Step)/float64(m.progress.Total), 1)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case FormView:
		return m.renderForm()
	case GeneratingView:
		return m.renderGenerating()
	case ResultView:
		return m.renderResult()
	case ConfirmView:
		return m.renderConfirm()
	case PublishingView:
		return m.renderPublishing()
	default:
		return ""
	}
}

func (m *Model) renderForm() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("vibemix ✨ describe a mood, get a playlist"))
	b.WriteString("\n")
	for i, input := range m.inputs {
		b.WriteString(input.View())
		if i < len(m.inputs)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(styles.err.Render(shared.UserMessage(m.err)))
		b.WriteString("\n\n")
	}
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.submit, m.keys.exit}))
	return b.String()
}

func (m *Model) renderGenerating() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Generating Playlist"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), m.progress.Message)
	fmt.Fprintf(&b, "%s  %d/%d\n", m.bar.ViewAs(m.percent()), m.progress.Step, m.progress.Total)

	if m.info != nil {
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", styles.focused.Render(m.info.Name), styles.help.Render(m.info.Description), styles.Swatches(m.info.ColorPalette))
	}

	if len(m.found) > 0 {
		b.WriteString("\n")
		start := max(len(m.found)-maxFoundRows, 0)
		if start > 0 {
			b.WriteString(styles.help.Render(fmt.Sprintf("  … %d more", start)))
			b.WriteString("\n")
		}
		for i, t := range m.found[start:] {
			fmt.Fprintf(&b, "  %2d. %s %s\n", start+i+1, t.Name, styles.help.Render("by "+t.ArtistNames()))
		}
	}
	return b.String()
}

func (m *Model) renderResult() string {
	p := m.playlist
	var b strings.Builder
	b.WriteString(styles.title.Render("✓ " + p.Name))
	b.WriteString("\n")
	if p.Description != "" {
		b.WriteString(styles.help.Render(p.Description))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %s  %s %s\n", styles.label.Render("Vibe:"), p.Vibe, styles.label.Render("Emojis:"), strings.Join(p.Emojis, " "))
	if p.UniquenessScore != nil {
		fmt.Fprintf(&b, "%s %d/100  ", styles.label.Render("Uniqueness:"), *p.UniquenessScore)
	}
	fmt.Fprintf(&b, "%s %d\n", styles.label.Render("Songs:"), p.SongCount)
	b.WriteString(styles.Swatches(p.ColorPalette))
	b.WriteString("\n\n")
	b.WriteString(m.trackList.View())
	b.WriteString("\n")

	for _, status := range []string{m.libraryStatus, m.spotifyStatus} {
		if status != "" {
			b.WriteString(status)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.save, m.keys.publish, m.keys.restart, m.keys.quit}))
	return b.String()
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Save '%s' to Spotify?", m.playlist.Name))
	info := fmt.Sprintf("\nTracks: %d\nA private playlist will be created in your account.\n", len(m.playlist.Tracks))

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderPublishing() string {
	title := styles.title.Render("Saving to Spotify")
	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spinner.View(), m.progress.Message, m.bar.ViewAs(m.percent()))
}
