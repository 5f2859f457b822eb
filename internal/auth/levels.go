package auth

import "fmt"

// Level is a capability level from the fixed authorization table. Levels are
// totally ordered: none < login < editor < admin.
type Level string

const (
	LevelNone   Level = "none"
	LevelLogin  Level = "login"
	LevelEditor Level = "editor"
	LevelAdmin  Level = "admin"
)

var levelWeights = map[Level]int{
	LevelNone:   0,
	LevelLogin:  1,
	LevelEditor: 2,
	LevelAdmin:  3,
}

// ParseLevel maps a stored property value onto the level table.
func ParseLevel(value string) (Level, error) {
	level := Level(value)
	if _, ok := levelWeights[level]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, value)
	}
	return level, nil
}

// AtLeast reports whether actual meets or exceeds required. Passing a name
// outside the level table is a programming error in the caller, reported as
// ErrUnknownLevel rather than an authentication failure.
func AtLeast(actual, required Level) (bool, error) {
	actualWeight, ok := levelWeights[actual]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownLevel, actual)
	}
	requiredWeight, ok := levelWeights[required]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownLevel, required)
	}
	return actualWeight >= requiredWeight, nil
}
