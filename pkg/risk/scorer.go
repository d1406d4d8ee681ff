// Package risk assigns a normalized severity to proctoring events.
package risk

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const UnknownEventType = "unknown"

// Weights maps event types to a risk in [0, 1]. Types not listed score Default.
type Weights struct {
	Default float64            `yaml:"default"`
	Types   map[string]float64 `yaml:"weights"`
}

// DefaultWeights is the baseline rule table. face_missing and multiple_faces
// are deliberately absent and fall back to Default.
func DefaultWeights() Weights {
	return Weights{
		Default: 0.1,
		Types: map[string]float64{
			"visibilityhidden":  0.7,
			"fullscreen_exit":   0.7,
			"suspicious_object": 0.7,
		},
	}
}

// LoadWeights reads a YAML weights file. A missing file yields the baseline.
func LoadWeights(path string) (Weights, error) {
	if path == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultWeights(), nil
		}
		return Weights{}, fmt.Errorf("read risk weights: %w", err)
	}

	w := Weights{Default: DefaultWeights().Default}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("parse risk weights: %w", err)
	}
	if w.Types == nil {
		w.Types = map[string]float64{}
	}

	return w.normalized(), nil
}

func (w Weights) normalized() Weights {
	out := Weights{Default: clamp(w.Default), Types: make(map[string]float64, len(w.Types))}
	for k, v := range w.Types {
		out.Types[k] = clamp(v)
	}
	return out
}

// Contribution explains how a score was reached.
type Contribution struct {
	EventType string  `json:"event_type"`
	Weight    float64 `json:"weight"`
	Matched   bool    `json:"matched"`
}

// Scorer is stateless across events; the weights are read-only after New.
type Scorer struct {
	weights Weights
	log     *logrus.Logger
}

// NewScorer uses weights as given; a nil Types table means every event scores
// Default.
func NewScorer(weights Weights, log *logrus.Logger) *Scorer {
	return &Scorer{
		weights: weights.normalized(),
		log:     log,
	}
}

// ScoreEvent returns the risk of an event. A missing or non-string type is
// scored as "unknown".
func (s *Scorer) ScoreEvent(event map[string]any) float64 {
	return s.Score(eventType(event))
}

// Score returns the risk for an event type.
func (s *Scorer) Score(eventType string) float64 {
	c := s.Explain(eventType)
	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"event_type": c.EventType,
			"weight":     c.Weight,
			"matched":    c.Matched,
		}).Debug("Risk contribution")
	}
	return c.Weight
}

func (s *Scorer) Explain(eventType string) Contribution {
	if w, ok := s.weights.Types[eventType]; ok {
		return Contribution{EventType: eventType, Weight: w, Matched: true}
	}
	return Contribution{EventType: eventType, Weight: s.weights.Default}
}

// Max returns the highest score among event types, 0 for none.
func (s *Scorer) Max(eventTypes []string) float64 {
	var max float64
	for _, t := range eventTypes {
		if v := s.Score(t); v > max {
			max = v
		}
	}
	return max
}

func eventType(event map[string]any) string {
	v, ok := event["type"]
	if !ok {
		return UnknownEventType
	}
	t, ok := v.(string)
	if !ok {
		return UnknownEventType
	}
	return t
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
