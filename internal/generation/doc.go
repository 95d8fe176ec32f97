// Package generation turns a vibe, emojis and a song count into playlist metadata, cover art
// and a diversity-constrained list of real tracks.
//
// # Pipeline
//
//  1. [Classifier] labels the vibe SPECIFIC (names a work or artist) or GENERIC (a mood).
//  2. [MetadataGenerator] names, describes and colors the playlist, falling back to mood tables.
//  3. [CoverGenerator] renders painterly cover art; specific vibes are first rewritten into a
//     name-free description.
//  4. [Engine.Discover] asks for "Title" by Artist suggestions over several rounds, resolves each
//     against the music vendor and admits tracks through a [Gate].
//  5. [AdvancedDiversify] orders the result and [Score] summarizes it.
//
// # Diversity caps
//
// At most one track per artist, three per estimated genre, and floor(0.2 × songCount) tracks
// a [MainstreamClassifier] flags.
//
// # Failure policy
//
// Classification, metadata and cover failures are logged and recovered. Search failures abort
// only their candidate; vendor 502s are retried three times with a linear pause.
package generation
