package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgGenerationComplete
	MsgPublishComplete
	MsgSaveComplete
)

// playlistResult carries the outcome of a generation or publish run.
type playlistResult struct {
	playlist *models.PlaylistData
	err      error
}

// saveResult carries the outcome of a library save.
type saveResult struct {
	id  string
	err error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// generationCompleteMsg is the constructor for [MsgGenerationComplete]
func generationCompleteMsg(playlist *models.PlaylistData, err error) Msg {
	return Msg{kind: MsgGenerationComplete, data: playlistResult{playlist, err}}
}

// publishCompleteMsg is the constructor for [MsgPublishComplete]
func publishCompleteMsg(playlist *models.PlaylistData, err error) Msg {
	return Msg{kind: MsgPublishComplete, data: playlistResult{playlist, err}}
}

// saveCompleteMsg is the constructor for [MsgSaveComplete]
func saveCompleteMsg(id string, err error) Msg {
	return Msg{kind: MsgSaveComplete, data: saveResult{id, err}}
}
