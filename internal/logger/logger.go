package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[37m"
)

// PrettyFormatter renders entries as "15:04:05 LEVEL message key=value".
type PrettyFormatter struct {
	DisableColors bool
}

func (f *PrettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString(e.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(f.colorizeLevel(e.Level))
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if f.DisableColors {
			fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
			continue
		}
		fmt.Fprintf(&b, " %s%s%s=%v", colorGray, k, colorReset, e.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *PrettyFormatter) colorizeLevel(level logrus.Level) string {
	var color string
	var name string

	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		color = colorBlue
		name = "DEBUG"
	case logrus.InfoLevel:
		color = colorGreen
		name = "INFO"
	case logrus.WarnLevel:
		color = colorYellow
		name = "WARN"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		color = colorRed
		name = "ERROR"
	default:
		color = colorGray
		name = level.String()
	}

	if f.DisableColors {
		return fmt.Sprintf("%-5s", name)
	}
	return fmt.Sprintf("%s%-5s%s", color, name, colorReset)
}

// New builds a logger writing to out.
func New(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&PrettyFormatter{})
	l.SetLevel(level)
	return l
}

// NewLogger writes to stderr so stdout stays free for tokens and progress.
func NewLogger() *logrus.Logger {
	return New(os.Stderr, logrus.InfoLevel)
}

// Discard is for tests and library callers that want silence.
func Discard() *logrus.Logger {
	return New(io.Discard, logrus.PanicLevel)
}
