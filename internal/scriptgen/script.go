package scriptgen

import (
	"encoding/json"
	"errors"
	"strings"
)

// Scene pairs narration text with a visual direction for the renderer.
type Scene struct {
	Narration string `json:"narration"`
	Visual    string `json:"visual,omitempty"`
}

// Script is the structured lesson produced by the script stage. It is the
// canonical intermediate artifact: the audio stage narrates it and the video
// stage renders it.
type Script struct {
	Title  string  `json:"title"`
	Topic  string  `json:"topic"`
	Scenes []Scene `json:"scenes"`
}

// Narration joins all scene narration into a single text for synthesis.
func (s Script) Narration() string {
	parts := make([]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		if text := strings.TrimSpace(scene.Narration); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// SceneTexts returns the visual directions, falling back to narration when a
// scene has none.
func (s Script) SceneTexts() []string {
	texts := make([]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		if visual := strings.TrimSpace(scene.Visual); visual != "" {
			texts = append(texts, visual)
			continue
		}
		texts = append(texts, strings.TrimSpace(scene.Narration))
	}
	return texts
}

// Validate reports whether the script is usable downstream.
func (s Script) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("script missing title")
	}
	if len(s.Scenes) == 0 {
		return errors.New("script has no scenes")
	}
	if strings.TrimSpace(s.Narration()) == "" {
		return errors.New("script has no narration")
	}
	return nil
}

// Encode serializes the script for blob storage.
func (s Script) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DecodeScript deserializes a stored script.
func DecodeScript(data []byte) (Script, error) {
	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return Script{}, err
	}
	return script, nil
}
