// Package services implements the external API boundaries of the generation pipeline.
//
// # Interfaces
//
//   - [TextGenerator] : single-turn completions used by classification, metadata, suggestions and cover prompts
//   - [ImageGenerator] : cover art rendering, returns a temporary URL
//   - [MusicVendor] : track search, recommendations, session probe and playlist publishing
//
// # OpenAI
//
// [OpenAIClient] implements both generator interfaces over resty. Every body is checked with gjson
// before fields are read (choices.0.message.content, data.0.url). 5xx and network failures are retried
// with exponential backoff; 4xx responses are permanent.
//
// # Spotify
//
// [SpotifyService] implements [MusicVendor] with github.com/zmb3/spotify/v2. Library retries are disabled
// so the discovery engine owns its retry policy. Errors are normalized into [shared.VendorError]:
//   - 401 : [shared.ErrVendorAuth]
//   - 403 or scope errors : [shared.ErrVendorPermission]
//   - 404 : [shared.ErrVendorNotFound]
//   - 429 : [shared.ErrVendorRateLimit]
//   - 502, 503, 504 : [shared.ErrVendorTransient]
//   - transport failures : [shared.ErrNetwork]
//
// # Session
//
// [Session] holds the OAuth token explicitly instead of process-wide state. Tokens are refreshed five
// minutes before expiry and persisted through a [TokenStore]. A 401 from the vendor clears the session.
//
// # Health
//
// [CheckHealth] runs [Probe] checks concurrently and reports user-facing messages.
package services
