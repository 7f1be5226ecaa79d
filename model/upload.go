package model

import "ClipForge/core/smf"

// TrackSummary describes one decoded track for the mapping UI.
type TrackSummary struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Channels   []uint8 `json:"channels"`
	MinNote    int     `json:"minNote"`
	MaxNote    int     `json:"maxNote"`
	IsDrum     bool    `json:"isDrum"`
	Program    int     `json:"program"`
	EventCount int     `json:"eventCount"`
}

// FileSummary is the response to a successful upload and to file lookups.
type FileSummary struct {
	FileID     string         `json:"fileId"`
	Name       string         `json:"name"`
	Format     uint16         `json:"format"`
	PPQ        uint16         `json:"ppq"`
	TrackCount int            `json:"trackCount"`
	Duration   int            `json:"duration"`
	Tracks     []TrackSummary `json:"tracks"`
}

// SummarizeFile builds the API view of a parsed file.
func SummarizeFile(fileID string, file *smf.ParsedFile) FileSummary {
	summary := FileSummary{
		FileID:     fileID,
		Name:       file.Name,
		Format:     file.Format,
		PPQ:        file.PPQ,
		TrackCount: len(file.Tracks),
		Duration:   file.Duration,
	}
	for i := range file.Tracks {
		track := &file.Tracks[i]
		summary.Tracks = append(summary.Tracks, TrackSummary{
			Index:      track.Index,
			Name:       track.Name,
			Channels:   track.Channels,
			MinNote:    track.MinNote,
			MaxNote:    track.MaxNote,
			IsDrum:     track.IsDrum,
			Program:    track.Program,
			EventCount: track.EventCount(),
		})
	}
	return summary
}
