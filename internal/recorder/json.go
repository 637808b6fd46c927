package recorder

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// JSONRecorder writes each run to <dir>/<strategy>_<run id>.json.
type JSONRecorder struct {
	dir string
	mu  sync.Mutex
}

func NewJSONRecorder(dir string) (*JSONRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	return &JSONRecorder{dir: dir}, nil
}

// Path is where run is written.
func (r *JSONRecorder) Path(run *Run) string {
	return filepath.Join(r.dir, run.Report.Metadata.Strategy+"_"+run.Report.RunID+".json")
}

func (r *JSONRecorder) RecordRun(run *Run) error {
	if err := validRun(run); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := sonic.ConfigStd.MarshalIndent(run, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal run")
	}
	if err := os.WriteFile(r.Path(run), data, 0o644); err != nil {
		return errors.Wrap(err, "write run")
	}
	return nil
}

func (r *JSONRecorder) Close() error { return nil }
