// Package curriculum describes the program days and the tasks each day holds.
// Day content (text, videos) lives in object storage and is not modeled here.
package curriculum

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCurriculum []byte

type Task struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
}

type Day struct {
	Number int    `yaml:"day" json:"day"`
	Title  string `yaml:"title" json:"title"`
	Tasks  []Task `yaml:"tasks" json:"tasks"`
}

type Curriculum struct {
	Days []Day `yaml:"days" json:"days"`
}

// Default returns the embedded curriculum.
func Default() (*Curriculum, error) {
	return Parse(defaultCurriculum)
}

// Load reads a curriculum from path, or the embedded default when path is empty.
// The result must describe exactly `days` days.
func Load(path string, days int) (*Curriculum, error) {
	var (
		c   *Curriculum
		err error
	)
	if strings.TrimSpace(path) == "" {
		c, err = Default()
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read curriculum: %w", err)
		}
		c, err = Parse(data)
	}
	if err != nil {
		return nil, err
	}
	if c.Len() != days {
		return nil, fmt.Errorf("curriculum has %d days, program expects %d", c.Len(), days)
	}
	return c, nil
}

// Parse decodes and validates a YAML curriculum.
func Parse(data []byte) (*Curriculum, error) {
	var c Curriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Curriculum) validate() error {
	if len(c.Days) == 0 {
		return errors.New("curriculum has no days")
	}
	for i, day := range c.Days {
		if day.Number != i+1 {
			return fmt.Errorf("curriculum day %d out of order (expected %d)", day.Number, i+1)
		}
		seen := make(map[string]struct{}, len(day.Tasks))
		for _, task := range day.Tasks {
			id := strings.TrimSpace(task.ID)
			if id == "" {
				return fmt.Errorf("day %d: task without id", day.Number)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("day %d: duplicate task %q", day.Number, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// Len is the number of program days.
func (c *Curriculum) Len() int {
	return len(c.Days)
}

// Day returns the day with the given 1-based number.
func (c *Curriculum) Day(number int) (Day, bool) {
	if number < 1 || number > len(c.Days) {
		return Day{}, false
	}
	return c.Days[number-1], true
}

// TasksTotal is the number of tasks on a day, zero for unknown days.
func (c *Curriculum) TasksTotal(number int) int {
	day, ok := c.Day(number)
	if !ok {
		return 0
	}
	return len(day.Tasks)
}

// HasTask reports whether taskID belongs to the day.
func (c *Curriculum) HasTask(number int, taskID string) bool {
	day, ok := c.Day(number)
	if !ok {
		return false
	}
	for _, task := range day.Tasks {
		if task.ID == taskID {
			return true
		}
	}
	return false
}
