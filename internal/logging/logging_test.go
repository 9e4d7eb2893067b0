package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug", "json")

	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s, want debug", logger.GetLevel())
	}

	logger.WithField("movie_id", 7).Info("rated")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "rated" {
		t.Fatalf("msg = %v, want rated", entry["msg"])
	}
	if entry["movie_id"] != float64(7) {
		t.Fatalf("movie_id = %v, want 7", entry["movie_id"])
	}
}

func TestNewWithWriterUnknownLevel(t *testing.T) {
	logger := NewWithWriter(&bytes.Buffer{}, "chatty", "text")
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s, want info", logger.GetLevel())
	}
}
