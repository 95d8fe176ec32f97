package tasks

import (
	"fmt"

	"github.com/desertthunder/vibemix/internal/generation"
	"github.com/desertthunder/vibemix/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Tracks collected so far (or items done for batches)
	Total   int    // Requested song count (or batch size)
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Progress converts the update into the ephemeral progress record shown to users.
func (u ProgressUpdate) Progress() models.GenerationProgress {
	return models.GenerationProgress{Current: u.Step, Total: u.Total, Phase: u.Message}
}

// Operation phase enumeration
type Phase int

const (
	Classify Phase = iota
	GenerateInfo
	GenerateCover
	SearchTracks
	Complete
	Publish
	Batch
)

func (p Phase) String() string {
	switch p {
	case Classify:
		return "classify"
	case GenerateInfo:
		return "generate_info"
	case GenerateCover:
		return "generate_cover"
	case SearchTracks:
		return "search_tracks"
	case Complete:
		return "complete"
	case Publish:
		return "publish"
	case Batch:
		return "batch"
	default:
		return ""
	}
}

func classifyUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Classify,
		Total:   total,
		Message: "Reading the vibe...",
	}
}

func infoUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GenerateInfo,
		Total:   total,
		Message: "Generating playlist info...",
	}
}

func coverUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GenerateCover,
		Total:   total,
		Message: "Generating cover image...",
	}
}

func searchUpdate(total int, info models.PlaylistInfo) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Total:   total,
		Message: "Searching for tracks...",
		Data:    info,
	}
}

func roundUpdate(report generation.RoundReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    report.Found,
		Total:   report.Total,
		Message: fmt.Sprintf("Found %d/%d tracks", report.Found, report.Total),
		Data:    report,
	}
}

func completeUpdate(p *models.PlaylistData) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    len(p.Tracks),
		Total:   p.SongCount,
		Message: "Playlist ready!",
		Data:    p,
	}
}

func cachedUpdate(p *models.PlaylistData) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    len(p.Tracks),
		Total:   p.SongCount,
		Message: "Using cached playlist",
		Data:    p,
	}
}

func publishUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Publish,
		Step:    step,
		Total:   total,
		Message: message,
	}
}

func batchCompletedUpdate(step, total int, item BatchItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, item.Playlist.Name, len(item.Playlist.Tracks)),
		Data:    item,
	}
}

func batchFailedUpdate(step, total int, item BatchItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, item.Request.Vibe, item.Error),
		Data:    item,
	}
}
