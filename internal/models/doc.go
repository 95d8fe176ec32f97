// Package models defines the value types shared across the vibemix generation pipeline.
//
//   - [PlaylistRequest] : emojis, song count and vibe as typed by the user
//   - [PlaylistInfo] : generated name, description, palette and keywords
//   - [Track] : a vendor track with its [Artist] credits and [Album]
//   - [PlaylistData] : a finished playlist as generated, saved, exported or imported
//   - [GenerationProgress] : ephemeral progress for streaming generation
//   - [Intent] : SPECIFIC or GENERIC classification of a vibe
//
// Track values are never mutated after they leave the vendor adapter; the pipeline only filters and orders them.
package models
