package trace

import (
	"os"
	"path/filepath"
)

// DatadogLogger receives the tracer's own diagnostics, which would
// otherwise be mixed into pyscan's output.
type DatadogLogger struct {
	file *os.File
}

func NewDatadogLogger() (*DatadogLogger, error) {
	file, err := os.Create(filepath.Join(os.TempDir(), "pyscan.dd.log"))
	if err != nil {
		return nil, err
	}

	return &DatadogLogger{
		file: file,
	}, nil
}

func (l *DatadogLogger) Log(msg string) {
	l.file.WriteString(msg)
	l.file.WriteString("\n")
}

func (l *DatadogLogger) Close() {
	l.file.Close()
}
