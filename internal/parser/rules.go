package parser

import (
	"regexp"
	"strings"
)

// lineKind identifies the rule that classified a line.
type lineKind int

const (
	kindProvider lineKind = iota + 1
	kindDeviceHeader
	kindDeviceFooter
	kindCharacteristicsHeader
	kindBlockSize
	kindInlinePairs
	kindTypedDecl
	kindTypedValues
)

func (k lineKind) String() string {
	switch k {
	case kindProvider:
		return "provider"
	case kindDeviceHeader:
		return "device-header"
	case kindDeviceFooter:
		return "device-footer"
	case kindCharacteristicsHeader:
		return "characteristics-header"
	case kindBlockSize:
		return "block-size"
	case kindInlinePairs:
		return "inline-pairs"
	case kindTypedDecl:
		return "typed-declaration"
	case kindTypedValues:
		return "typed-values"
	default:
		return "unknown"
	}
}

// classified is the typed capture produced by a matching rule.
type classified interface {
	kind() lineKind
}

type providerLine struct {
	Name        string
	DeviceCount int
	CountText   string
}

type deviceHeaderLine struct {
	ID string
	// Unnumbered is set for a static information banner whose path does
	// not end in a numeric id.
	Unnumbered bool
}

type deviceFooterLine struct{}

type characteristicsHeaderLine struct {
	CameraID string
	Rest     string
}

type blockSizeLine struct {
	Size       int
	DataCount  int
	EntryCount int
}

// Pair is one "key: value" segment of an inline pairs line.
type Pair struct {
	Key   string
	Value string
}

type inlinePairsLine struct {
	Pairs []Pair
}

type typedDeclLine struct {
	Name      string
	Datatype  string
	Count     int
	CountText string
	CountOK   bool
}

type typedValueLine struct {
	Raw string
}

func (providerLine) kind() lineKind              { return kindProvider }
func (deviceHeaderLine) kind() lineKind          { return kindDeviceHeader }
func (deviceFooterLine) kind() lineKind          { return kindDeviceFooter }
func (characteristicsHeaderLine) kind() lineKind { return kindCharacteristicsHeader }
func (blockSizeLine) kind() lineKind             { return kindBlockSize }
func (inlinePairsLine) kind() lineKind           { return kindInlinePairs }
func (typedDeclLine) kind() lineKind             { return kindTypedDecl }
func (typedValueLine) kind() lineKind            { return kindTypedValues }

var (
	providerPattern        = regexp.MustCompile(`(?i)^==.*camera provider hal (.*) static info.*\s(\d+) devices.*==$`)
	deviceHeaderPattern    = regexp.MustCompile(`(?i)^==.*camera hal device.*/(\d+).*static information.*==$`)
	staticInfoPattern      = regexp.MustCompile(`(?i)^==.*camera hal device.*static information.*==$`)
	deviceFooterPattern    = regexp.MustCompile(`(?i)^==.*camera hal device.*==$`)
	characteristicsPattern = regexp.MustCompile(`(?i)\bcamera\s+(.*?)\s*characteristics:\s*(.*)$`)
	blockSizePattern       = regexp.MustCompile(`(?i)^size:\s*(\d+),\s*data count:\s*(\d+),\s*entry count:\s*(\d+)`)
	pairKeyPattern         = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _./-]*$`)
	typedDeclPattern       = regexp.MustCompile(`^(\S.*?):\s*(\w+)\[([^\]]*)\]\s*$`)
	typedValuePattern      = regexp.MustCompile(`^\[(.*)\]$`)
)

// rule is one entry of the ordered classification table.
type rule struct {
	kind  lineKind
	match func(line string) (classified, bool)
}

// providerRule is the only rule evaluated before a provider header is seen.
var providerRule = rule{kindProvider, matchProvider}

// sectionRules are evaluated in order, first match wins, while inside a
// provider section.
var sectionRules = []rule{
	{kindDeviceHeader, matchDeviceHeader},
	{kindDeviceFooter, matchDeviceFooter},
	{kindCharacteristicsHeader, matchCharacteristicsHeader},
	{kindBlockSize, matchBlockSize},
	{kindInlinePairs, matchInlinePairs},
	{kindTypedDecl, matchTypedDecl},
	{kindTypedValues, matchTypedValues},
}

// fieldRules is the subset applied to the remainder of a characteristics
// header line.
var fieldRules = sectionRules[3:]

// classify runs line through rules and returns the first capture.
func classify(rules []rule, line string) (classified, bool) {
	for _, r := range rules {
		if c, ok := r.match(line); ok {
			return c, true
		}
	}
	return nil, false
}

func matchProvider(line string) (classified, bool) {
	m := providerPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	p := providerLine{Name: strings.TrimSpace(m[1]), CountText: m[2]}
	if n, err := ParseInt("device count", m[2]); err == nil {
		p.DeviceCount = n
	} else {
		p.DeviceCount = -1
	}
	return p, true
}

func matchDeviceHeader(line string) (classified, bool) {
	m := deviceHeaderPattern.FindStringSubmatch(line)
	if m == nil {
		if staticInfoPattern.MatchString(line) {
			return deviceHeaderLine{Unnumbered: true}, true
		}
		return nil, false
	}
	return deviceHeaderLine{ID: m[1]}, true
}

func matchDeviceFooter(line string) (classified, bool) {
	if !deviceFooterPattern.MatchString(line) {
		return nil, false
	}
	return deviceFooterLine{}, true
}

func matchCharacteristicsHeader(line string) (classified, bool) {
	m := characteristicsPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return characteristicsHeaderLine{
		CameraID: strings.TrimSpace(m[1]),
		Rest:     strings.TrimSpace(m[2]),
	}, true
}

func matchBlockSize(line string) (classified, bool) {
	m := blockSizePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	var b blockSizeLine
	var err error
	if b.Size, err = ParseInt("size", m[1]); err != nil {
		return nil, false
	}
	if b.DataCount, err = ParseInt("data count", m[2]); err != nil {
		return nil, false
	}
	if b.EntryCount, err = ParseInt("entry count", m[3]); err != nil {
		return nil, false
	}
	return b, true
}

// matchInlinePairs splits a line into "key: value" segments. A segment
// without a usable key continues the previous value, so "Conflicting
// devices: 0, 1" stays one pair. Typed declarations and value lines are
// left to their own rules.
func matchInlinePairs(line string) (classified, bool) {
	if strings.ContainsAny(line, "[]") &&
		(typedDeclPattern.MatchString(line) || typedValuePattern.MatchString(line)) {
		return nil, false
	}

	var pairs []Pair
	for _, seg := range strings.Split(line, ",") {
		key, value, found := strings.Cut(seg, ":")
		key = strings.TrimSpace(key)
		if found && pairKeyPattern.MatchString(key) {
			pairs = append(pairs, Pair{Key: key, Value: value})
			continue
		}
		if len(pairs) == 0 {
			return nil, false
		}
		pairs[len(pairs)-1].Value += "," + seg
	}

	kept := pairs[:0]
	for _, p := range pairs {
		p.Value = strings.TrimSpace(p.Value)
		if p.Value != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	return inlinePairsLine{Pairs: kept}, true
}

func matchTypedDecl(line string) (classified, bool) {
	m := typedDeclPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	d := typedDeclLine{
		Name:     stripParenSuffix(m[1]),
		Datatype: strings.ToLower(m[2]),
	}
	countText := strings.TrimSpace(m[3])
	if n, err := ParseInt("count", countText); err == nil && n >= 0 {
		d.Count = n
		d.CountOK = true
	} else {
		d.CountText = countText
	}
	if d.Name == "" {
		return nil, false
	}
	return d, true
}

func matchTypedValues(line string) (classified, bool) {
	m := typedValuePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return typedValueLine{Raw: m[1]}, true
}
