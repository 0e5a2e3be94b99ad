package transform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Option is a single transform option descriptor: either a named value or a group of options.
// Exactly one of Value and Group is set.
type Option struct {
	Value *OptionValue `json:"value,omitempty"`
	Group *OptionGroup `json:"group,omitempty"`
}

// OptionValue is a named transform parameter
type OptionValue struct {
	Name     string `json:"name"`
	Required bool   `json:"required,omitempty"`
}

// OptionGroup groups options that are supplied together
type OptionGroup struct {
	Required bool     `json:"required,omitempty"`
	Options  []Option `json:"transformOptions"`
}

// Key returns a canonical representation of the option. Two options with the same key are
// the same option; group members are compared regardless of their order.
func (o Option) Key() string {
	switch {
	case o.Value != nil:
		return "v" + requiredFlag(o.Value.Required) + strconv.Quote(o.Value.Name)
	case o.Group != nil:
		keys := make([]string, 0, len(o.Group.Options))
		for _, member := range o.Group.Options {
			keys = append(keys, member.Key())
		}
		sort.Strings(keys)
		return "g" + requiredFlag(o.Group.Required) + "[" + strings.Join(keys, ",") + "]"
	default:
		return "-"
	}
}

// Validate checks that exactly one of Value and Group is set, recursively
func (o Option) Validate() error {
	switch {
	case o.Value != nil && o.Group != nil:
		return fmt.Errorf("option sets both value and group")
	case o.Value != nil:
		if o.Value.Name == "" {
			return fmt.Errorf("option value name is required")
		}
		return nil
	case o.Group != nil:
		for i, member := range o.Group.Options {
			if err := member.Validate(); err != nil {
				return fmt.Errorf("group member %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("option must set value or group")
	}
}

func requiredFlag(required bool) string {
	if required {
		return "!"
	}
	return "?"
}

// OptionSet is a set of options; iteration order is the first-seen order of the source document
type OptionSet []Option

// UnmarshalJSON decodes the set and drops repeated options
func (s *OptionSet) UnmarshalJSON(data []byte) error {
	var options []Option
	if err := json.Unmarshal(data, &options); err != nil {
		return err
	}
	*s = NewOptionSet(options...)
	return nil
}

// NewOptionSet builds a set from options, keeping the first occurrence of each option
func NewOptionSet(options ...Option) OptionSet {
	set := make(OptionSet, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		key := option.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		set = append(set, option)
	}
	return set
}

// Contains reports whether the set holds an option with the same key
func (s OptionSet) Contains(option Option) bool {
	key := option.Key()
	for _, o := range s {
		if o.Key() == key {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold the same options, ignoring order
func (s OptionSet) Equal(other OptionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for _, o := range other {
		if !s.Contains(o) {
			return false
		}
	}
	return true
}

// ValueOption is a convenience constructor for a named option
func ValueOption(name string, required bool) Option {
	return Option{Value: &OptionValue{Name: name, Required: required}}
}

// GroupOption is a convenience constructor for an option group
func GroupOption(required bool, options ...Option) Option {
	return Option{Group: &OptionGroup{Required: required, Options: options}}
}
