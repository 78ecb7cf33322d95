package poller

import (
	"strings"

	"filmgen/internal/domain"
)

type state int

const (
	stateRunning state = iota
	stateSucceeded
	stateFailed
)

var successWords = map[string]bool{
	"SUCCEEDED": true, "SUCCESS": true, "SUCCESSFUL": true, "COMPLETED": true,
	"COMPLETE": true, "READY": true, "DONE": true, "FINISHED": true,
}

var failureWords = map[string]bool{
	"FAILED": true, "FAILURE": true, "ERROR": true, "CANCELLED": true,
	"CANCELED": true, "REJECTED": true, "EXPIRED": true,
}

type verdict struct {
	state   state
	raw     string
	message string
}

// classify reads the job status out of a status payload. A payload without a
// status field counts as done when it already carries media.
func classify(payload any) verdict {
	obj, ok := payload.(map[string]any)
	if !ok {
		if _, found := ExtractMedia(payload); found {
			return verdict{state: stateSucceeded}
		}
		return verdict{state: stateRunning}
	}
	raw := statusField(obj)
	word := strings.ToUpper(strings.Join(strings.Fields(raw), "_"))
	switch {
	case successWords[word]:
		return verdict{state: stateSucceeded, raw: raw}
	case failureWords[word], strings.HasSuffix(word, "MODERATED"):
		msg := failureMessage(obj)
		if msg == "" {
			msg = "job status " + raw
		}
		return verdict{state: stateFailed, raw: raw, message: msg}
	case word == "":
		if _, found := ExtractMedia(payload); found {
			return verdict{state: stateSucceeded}
		}
	}
	return verdict{state: stateRunning, raw: raw}
}

var nestedContainers = []string{"data", "task", "job", "result", "output"}

func statusField(obj map[string]any) string {
	for _, key := range []string{"status", "state"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	for _, key := range nestedContainers {
		if nested, ok := obj[key].(map[string]any); ok {
			for _, k := range []string{"status", "state"} {
				if s, ok := nested[k].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return ""
}

func failureMessage(obj map[string]any) string {
	for _, key := range []string{"error", "failure", "failure_reason", "failureCode", "message", "details"} {
		switch v := obj[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// mediaKeys are checked in priority order on each object.
var mediaKeys = []string{"images", "image_url", "url", "sample", "video_url", "video", "output", "b64_json"}

const maxMediaDepth = 4

// ExtractMedia finds the media reference in a success payload. A bare array
// wins, then images, image_url and url; nested result containers are
// searched after the top-level keys.
func ExtractMedia(payload any) (domain.MediaLocator, bool) {
	return mediaFrom(payload, "", 0)
}

func mediaFrom(v any, key string, depth int) (domain.MediaLocator, bool) {
	if depth > maxMediaDepth {
		return domain.MediaLocator{}, false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		switch {
		case s == "":
			return domain.MediaLocator{}, false
		case strings.HasPrefix(s, "data:"):
			return domain.InlineBytes("", s), true
		case key == "b64_json":
			return domain.InlineBytes("image/png", s), true
		case strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"):
			return domain.RemoteURL(s), true
		}
	case []any:
		for _, item := range t {
			if loc, ok := mediaFrom(item, key, depth+1); ok {
				return loc, true
			}
		}
	case map[string]any:
		for _, k := range mediaKeys {
			if inner, present := t[k]; present {
				if loc, ok := mediaFrom(inner, k, depth+1); ok {
					return loc, true
				}
			}
		}
		for _, k := range nestedContainers {
			if inner, present := t[k]; present {
				if loc, ok := mediaFrom(inner, k, depth+1); ok {
					return loc, true
				}
			}
		}
	}
	return domain.MediaLocator{}, false
}
