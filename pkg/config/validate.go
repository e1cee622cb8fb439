package config

import (
	"fmt"

	"github.com/go-playground/validator"

	"github.com/japaniel/aprendo/pkg/quiz"
)

// Validate checks field constraints and the quiz id ranges.
// Load calls it automatically.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := quiz.ParseIDRanges(c.Quiz.Ranges); err != nil {
		return fmt.Errorf("quiz.ranges: %w", err)
	}
	return nil
}
