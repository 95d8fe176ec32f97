// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for playlist generation:
//  1. [FormView] : Enter emojis, song count and a vibe
//  2. [GeneratingView] : Watch the pipeline stream progress as tracks are found
//  3. [ResultView] : Browse the finished playlist, save it to the library or Spotify
//  4. [ConfirmView] : Confirm publishing to Spotify
//  5. [PublishingView] : Monitor the publish steps
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the playlist engine, providing non-blocking status reporting during generation.
//
// Keyboard navigation uses tab to move between form fields and single-key actions elsewhere, with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
