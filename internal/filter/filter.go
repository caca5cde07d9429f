// Package filter keeps the parts of a study tree whose tags pass a set of
// per-level checks.
package filter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v2"

	"ikh/dicom-tree/internal/models"
	"ikh/dicom-tree/internal/tags"
)

const (
	OpEqual        = "eq"
	OpNotEqual     = "ne"
	OpGreater      = "gt"
	OpLess         = "lt"
	OpGreaterEqual = "ge"
	OpLessEqual    = "le"
	OpIn           = "in"
	OpNotIn        = "not_in"
	OpExists       = "exists"
	OpNotExists    = "dne"
)

// Check is one condition as written in a filter file. Value is a scalar,
// or a list for in and not_in. Type is "str", "int" or "float"; when it
// is empty, numeric Values compare numerically and anything else as text.
type Check struct {
	Name     string      `json:"Name" yaml:"Name"`
	Operator string      `json:"Operator" yaml:"Operator"`
	Value    interface{} `json:"Value" yaml:"Value"`
	Index    int         `json:"Index" yaml:"Index"`
	Type     string      `json:"Type" yaml:"Type"`
}

var (
	ErrOperator = errors.New("unknown operator")
	ErrType     = errors.New("unknown type")
	ErrValue    = errors.New("invalid value")
)

// ConfigError reports a filter file check that cannot be used.
type ConfigError struct {
	Category tags.Category
	Index    int
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filter file: %s check %d: %v", e.Category, e.Index, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type condition struct {
	name    string
	op      string
	index   int
	numeric bool
	isInt   bool
	text    []string
	nums    []float64
}

type Filter struct {
	levels [3][]condition
}

func Load(study, series, instance []Check) (*Filter, error) {
	f := &Filter{}
	for c, checks := range [][]Check{study, series, instance} {
		for i, check := range checks {
			cond, err := compile(check)
			if err != nil {
				return nil, &ConfigError{Category: tags.Category(c), Index: i, Err: err}
			}
			f.levels[c] = append(f.levels[c], cond)
		}
	}
	return f, nil
}

func compile(check Check) (condition, error) {
	cond := condition{name: check.Name, op: check.Operator, index: check.Index}
	if check.Name == "" {
		return cond, fmt.Errorf("%w: missing Name", ErrValue)
	}
	if check.Index < 0 {
		return cond, fmt.Errorf("%w: negative Index", ErrValue)
	}

	var operands []interface{}
	switch check.Operator {
	case OpExists, OpNotExists:
		return cond, nil
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		if check.Value == nil {
			return cond, fmt.Errorf("%w: %s needs a Value", ErrValue, check.Operator)
		}
		operands = []interface{}{check.Value}
	case OpIn, OpNotIn:
		list, ok := check.Value.([]interface{})
		if !ok {
			return cond, fmt.Errorf("%w: %s needs a list Value", ErrValue, check.Operator)
		}
		operands = list
	default:
		return cond, fmt.Errorf("%w %q", ErrOperator, check.Operator)
	}

	switch check.Type {
	case "":
		cond.numeric = allNumbers(operands)
	case "str":
	case "int":
		cond.numeric, cond.isInt = true, true
	case "float":
		cond.numeric = true
	default:
		return cond, fmt.Errorf("%w %q", ErrType, check.Type)
	}

	for _, v := range operands {
		if cond.numeric {
			n, ok := toFloat(v)
			if !ok {
				return cond, fmt.Errorf("%w: %v is not a number", ErrValue, v)
			}
			cond.nums = append(cond.nums, n)
			continue
		}
		cond.text = append(cond.text, fmt.Sprint(v))
	}
	return cond, nil
}

func allNumbers(values []interface{}) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		switch v.(type) {
		case int, int64, float64:
		default:
			return false
		}
	}
	return true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// match reports whether the tag found by lookup satisfies the condition.
func (c condition) match(lookup func(string) (models.TagNode, bool)) bool {
	node, found := lookup(c.name)
	switch c.op {
	case OpExists:
		return found
	case OpNotExists:
		return !found
	}
	if !found {
		return false
	}
	components := node.Value.Components()
	if c.index >= len(components) {
		return false
	}
	value := components[c.index]

	if !c.numeric {
		return c.compare(strings.Compare(value, c.text[0]), contains(c.text, value))
	}
	n, ok := c.parse(value)
	if !ok {
		return false
	}
	return c.compare(compareFloat(n, c.nums[0]), containsFloat(c.nums, n))
}

func (c condition) parse(value string) (float64, bool) {
	if c.isInt {
		i, err := strconv.ParseInt(value, 10, 64)
		return float64(i), err == nil
	}
	f, err := strconv.ParseFloat(value, 64)
	return f, err == nil
}

func (c condition) compare(cmp int, member bool) bool {
	switch c.op {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	case OpIn:
		return member
	case OpNotIn:
		return !member
	}
	return false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsFloat(list []float64, v float64) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}

type filterFile struct {
	Study    []Check `json:"Study" yaml:"Study"`
	Series   []Check `json:"Series" yaml:"Series"`
	Instance []Check `json:"Instance" yaml:"Instance"`
}

// LoadFile reads a JSON or YAML filter file. A level the file leaves out
// has no checks.
func LoadFile(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ff filterFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ff)
	default:
		err = json.Unmarshal(data, &ff)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing filter file %s: %w", path, err)
	}
	return Load(ff.Study, ff.Series, ff.Instance)
}
