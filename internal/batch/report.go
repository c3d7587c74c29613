package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"annotcore/internal/corpuserr"
)

// Problem is one report line: something that stopped the processing of a
// single annotation or tier.
type Problem struct {
	AnnotationID string `json:"annotation_id"`
	SpeakerID    string `json:"speaker_id,omitempty"`
	LevelID      string `json:"level_id,omitempty"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
}

// Report is the outcome of a pass.
type Report struct {
	Pass          string    `json:"pass"`
	CorrelationID string    `json:"correlation_id"`
	Started       time.Time `json:"started"`
	Finished      time.Time `json:"finished"`
	Total         int       `json:"total"`
	Processed     int       `json:"processed"`
	Changed       int       `json:"changed"`
	Problems      []Problem `json:"problems,omitempty"`
}

func newReport(pass, correlationID string) *Report {
	return &Report{Pass: pass, CorrelationID: correlationID, Started: time.Now().UTC()}
}

// tierError attaches the speaker and level a failure belongs to.
type tierError struct {
	speakerID string
	levelID   string
	err       error
}

func (e *tierError) Error() string {
	return fmt.Sprintf("speaker %q level %q: %v", e.speakerID, e.levelID, e.err)
}

func (e *tierError) Unwrap() error { return e.err }

func onTier(speakerID, levelID string, err error) error {
	if err == nil {
		return nil
	}
	return &tierError{speakerID: speakerID, levelID: levelID, err: err}
}

func (r *Report) addError(annotationID string, err error) {
	p := Problem{
		AnnotationID: annotationID,
		Kind:         corpuserr.KindOf(err).String(),
		Message:      err.Error(),
	}
	var te *tierError
	if errors.As(err, &te) {
		p.SpeakerID, p.LevelID = te.speakerID, te.levelID
		p.Message = te.err.Error()
	}
	r.Problems = append(r.Problems, p)
}

// Summary is a one-line description of the report.
func (r *Report) Summary() string {
	return fmt.Sprintf("%s: %s of %s annotations processed, %s changed, %s problems",
		r.Pass,
		humanize.Comma(int64(r.Processed)),
		humanize.Comma(int64(r.Total)),
		humanize.Comma(int64(r.Changed)),
		humanize.Comma(int64(len(r.Problems))),
	)
}

// WriteText writes the summary followed by one tab-separated line per
// problem.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n", r.Summary(), r.CorrelationID)
	for _, p := range r.Problems {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\n", p.AnnotationID, p.SpeakerID, p.LevelID, p.Kind, p.Message)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Save writes the report to path, as JSON when the path ends in .json and
// as text otherwise. Parent directories are created.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(r)
	} else {
		err = r.WriteText(f)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
