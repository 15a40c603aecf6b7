package ffmpeg

import (
	"fmt"
	"slices"
	"strings"
)

// OptionType represents a strongly typed ffmpeg behavior flag.
type OptionType string

// FFmpeg option constants
const (
	OptionLowLatency         OptionType = "low_latency"
	OptionRealtimeBuffer     OptionType = "rtbufsize"
	OptionThreadQueue512     OptionType = "thread_queue_512"
	OptionThreadQueue4096    OptionType = "thread_queue_4096"
	OptionWallclockTimestamp OptionType = "wallclock_ts"
	OptionCopyTimestamps     OptionType = "copyts"
)

// OptionCategory represents option categories
type OptionCategory string

const (
	CategoryTiming      OptionCategory = "Timing"
	CategoryPerformance OptionCategory = "Performance"
	CategoryLatency     OptionCategory = "Latency"
)

// ExclusiveGroup represents a group of mutually exclusive options
type ExclusiveGroup string

const (
	GroupThreadQueue ExclusiveGroup = "thread_queue"
)

// Option describes a behavior flag and the arguments it contributes.
type Option struct {
	Key            OptionType      `json:"key"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       OptionCategory  `json:"category"`
	AppDefault     bool            `json:"app_default"`
	ExclusiveGroup *ExclusiveGroup `json:"exclusive_group,omitempty"`
	ConflictsWith  []OptionType    `json:"conflicts_with,omitempty"`

	// Formats limits the option to some demuxers. Empty means all.
	Formats    []InputFormat `json:"formats,omitempty"`
	InputArgs  []string      `json:"-"` // placed before -i
	OutputArgs []string      `json:"-"` // placed after the encoder settings
}

func group(g ExclusiveGroup) *ExclusiveGroup { return &g }

// AllOptions contains every supported behavior flag.
var AllOptions = []Option{
	{
		Key:         OptionLowLatency,
		Name:        "Low Latency Mode",
		Description: "Disable muxer buffering and flush every packet",
		Category:    CategoryLatency,
		AppDefault:  true,
		OutputArgs:  []string{"-fflags", "nobuffer", "-flags", "low_delay", "-max_delay", "0", "-flush_packets", "1"},
	},
	{
		Key:         OptionRealtimeBuffer,
		Name:        "Realtime Buffer",
		Description: "Enlarge the DirectShow realtime buffer to avoid dropped frames",
		Category:    CategoryPerformance,
		AppDefault:  true,
		Formats:     []InputFormat{InputDShow},
		InputArgs:   []string{"-rtbufsize", "100M"},
	},
	{
		Key:            OptionThreadQueue512,
		Name:           "Thread Queue",
		Description:    "Use a 512 packet input thread queue",
		Category:       CategoryPerformance,
		AppDefault:     true,
		ExclusiveGroup: group(GroupThreadQueue),
		InputArgs:      []string{"-thread_queue_size", "512"},
	},
	{
		Key:            OptionThreadQueue4096,
		Name:           "Large Thread Queue",
		Description:    "Use a 4096 packet input thread queue for slow devices",
		Category:       CategoryPerformance,
		ExclusiveGroup: group(GroupThreadQueue),
		InputArgs:      []string{"-thread_queue_size", "4096"},
	},
	{
		Key:           OptionWallclockTimestamp,
		Name:          "Wallclock Timestamps",
		Description:   "Stamp captured frames with the wallclock",
		Category:      CategoryTiming,
		ConflictsWith: []OptionType{OptionCopyTimestamps},
		InputArgs:     []string{"-use_wallclock_as_timestamps", "1"},
	},
	{
		Key:           OptionCopyTimestamps,
		Name:          "Copy Timestamps",
		Description:   "Preserve device timestamps and start at zero",
		Category:      CategoryTiming,
		ConflictsWith: []OptionType{OptionWallclockTimestamp},
		OutputArgs:    []string{"-copyts", "-start_at_zero"},
	},
}

// GetOptionByKey returns an option by its key
func GetOptionByKey(key OptionType) *Option {
	for i := range AllOptions {
		if AllOptions[i].Key == key {
			return &AllOptions[i]
		}
	}
	return nil
}

// ValidateOptions rejects unknown keys, exclusive group clashes and conflicts.
func ValidateOptions(selected []OptionType) error {
	groups := make(map[ExclusiveGroup][]string)
	for _, key := range selected {
		option := GetOptionByKey(key)
		if option == nil {
			return fmt.Errorf("unknown ffmpeg option %q", key)
		}
		if option.ExclusiveGroup != nil {
			groups[*option.ExclusiveGroup] = append(groups[*option.ExclusiveGroup], option.Name)
		}
	}

	for g, names := range groups {
		if len(names) > 1 {
			return fmt.Errorf("multiple options from exclusive group '%s' selected: %s", g, strings.Join(names, ", "))
		}
	}

	for _, key := range selected {
		option := GetOptionByKey(key)
		for _, conflict := range option.ConflictsWith {
			if slices.Contains(selected, conflict) {
				return fmt.Errorf("option '%s' conflicts with '%s'", option.Name, GetOptionByKey(conflict).Name)
			}
		}
	}
	return nil
}

// GetDefaultOptions returns the options that are enabled by default.
func GetDefaultOptions() []OptionType {
	var defaults []OptionType
	for _, option := range AllOptions {
		if option.AppDefault {
			defaults = append(defaults, option.Key)
		}
	}
	return defaults
}

// applies reports whether the option is meaningful for the demuxer.
func (o *Option) applies(format InputFormat) bool {
	return len(o.Formats) == 0 || slices.Contains(o.Formats, format)
}

// inputArgs collects the pre-input arguments of the selected options in AllOptions order.
func inputArgs(selected []OptionType, format InputFormat) []string {
	var args []string
	for i := range AllOptions {
		o := &AllOptions[i]
		if slices.Contains(selected, o.Key) && o.applies(format) {
			args = append(args, o.InputArgs...)
		}
	}
	return args
}

// outputArgs collects the post-encoder arguments of the selected options.
func outputArgs(selected []OptionType, format InputFormat) []string {
	var args []string
	for i := range AllOptions {
		o := &AllOptions[i]
		if slices.Contains(selected, o.Key) && o.applies(format) {
			args = append(args, o.OutputArgs...)
		}
	}
	return args
}
