// Package tasks orchestrates playlist generation with real-time progress reporting.
//
// # Core Operations
//
// [PlaylistEngine] exposes four operations:
//
//  1. [PlaylistEngine.GenerateStreaming] : Full vibe → playlist pipeline
//     - Validates the request and checks the result cache
//     - Classifies the vibe as specific or generic
//     - Generates metadata and cover art concurrently
//     - Discovers tracks round by round and scores the result
//
//  2. [PlaylistEngine.Generate] : The same pipeline without progress reporting
//
//  3. [PlaylistEngine.GenerateMany] : Several requests through a rate limited worker pool
//     - Failures are recorded per item and never cancel the batch
//
//  4. [PlaylistEngine.Publish] : Create the playlist on Spotify, add tracks, upload the cover
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Step never decreases within one generation. Updates use select with default to prevent blocking.
//
// # Deadlines
//
// Each generation is bounded by a deadline derived from the requested song count. Running out
// of time returns [shared.ErrGenerationTimeout] and no partial playlist.
package tasks
