// Package audio renders a script into one published mp3.
//
// Each segment is synthesized to <episodes>/<id>/seg_NN.mp3, the segments
// are joined into <episodes>/<id>/episode.mp3, and that file is copied to
// <episodes>/<id>.mp3, the path served to feed readers.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"briefings/internal/fileutil"
	"briefings/internal/logging"
	"briefings/internal/script"
)

// Synthesizer converts text to encoded audio in one voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Voices holds the two resolved voice ids. A voices the first host; B
// voices everyone else.
type Voices struct {
	A string
	B string
}

// For returns the voice id for host.
func (v Voices) For(host string) string {
	if strings.EqualFold(strings.TrimSpace(host), script.HostAlex) {
		return v.A
	}
	return v.B
}

// Published describes the public audio file.
type Published struct {
	File string
	Path string
	Size int64
}

// Renderer writes episode audio under one directory.
type Renderer struct {
	tts    Synthesizer
	dir    string
	logger *slog.Logger
}

// NewRenderer builds a renderer rooted at episodesDir.
func NewRenderer(tts Synthesizer, episodesDir string, logger *slog.Logger) *Renderer {
	return &Renderer{tts: tts, dir: episodesDir, logger: logging.NewComponentLogger(logger, "audio")}
}

// Dir returns the public episodes directory.
func (r *Renderer) Dir() string {
	return r.dir
}

// SegmentDir is where the per-segment files for id live.
func (r *Renderer) SegmentDir(id string) string {
	return filepath.Join(r.dir, id)
}

// PublicPath is the served mp3 for id.
func (r *Renderer) PublicPath(id string) string {
	return filepath.Join(r.dir, id+".mp3")
}

// Render synthesizes segments in order and publishes the joined file.
func (r *Renderer) Render(ctx context.Context, id string, segments []script.Segment, voices Voices) (Published, error) {
	if len(segments) == 0 {
		return Published{}, fmt.Errorf("render %s: script has no segments", id)
	}
	segDir := r.SegmentDir(id)
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return Published{}, fmt.Errorf("create segment directory: %w", err)
	}

	logger := logging.WithContext(ctx, r.logger)
	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		data, err := r.tts.Synthesize(ctx, seg.Text, voices.For(seg.Host))
		if err != nil {
			return Published{}, fmt.Errorf("synthesize segment %d: %w", i, err)
		}
		path := filepath.Join(segDir, fmt.Sprintf("seg_%02d.mp3", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return Published{}, fmt.Errorf("write segment %d: %w", i, err)
		}
		parts = append(parts, path)
		logger.Debug("segment synthesized",
			logging.Int("segment", i),
			logging.String("host", seg.Host),
			logging.Int("bytes", len(data)),
		)
	}

	joined := filepath.Join(segDir, "episode.mp3")
	if _, err := fileutil.Concat(joined, parts); err != nil {
		return Published{}, fmt.Errorf("join segments: %w", err)
	}
	public := r.PublicPath(id)
	size, err := fileutil.CopyVerified(joined, public)
	if err != nil {
		return Published{}, fmt.Errorf("publish audio: %w", err)
	}
	logger.Info("episode audio published",
		logging.String(logging.FieldEpisodeID, id),
		logging.Int("segments", len(segments)),
		logging.Int64("bytes", size),
	)
	return Published{File: filepath.Base(public), Path: public, Size: size}, nil
}

// Remove deletes the published file and the segment directory for id.
// Missing files are not an error.
func (r *Renderer) Remove(id string) error {
	var errs []string
	if err := os.Remove(r.PublicPath(id)); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err.Error())
	}
	if err := os.RemoveAll(r.SegmentDir(id)); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("remove audio for %s: %s", id, strings.Join(errs, "; "))
	}
	return nil
}
