package spark2

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// compiledArea is an AreaEntry with its regex lists pre-compiled once at
// Config construction time, so NEGOTIATE-time area matching never pays
// compilation cost on the hot path.
type compiledArea struct {
	areaID     string
	neighborRe []*regexp.Regexp
	interfaceRe []*regexp.Regexp
}

// compileAreas compiles every AreaEntry's regex lists. Matching is
// case-insensitive, so each pattern is compiled with the (?i) flag.
func compileAreas(areas []spark2msg.AreaEntry) ([]compiledArea, error) {
	out := make([]compiledArea, 0, len(areas))
	for _, a := range areas {
		ca := compiledArea{areaID: a.AreaID}
		for _, p := range a.NeighborRegexes {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("area %q neighbor regex %q: %w", a.AreaID, p, err)
			}
			ca.neighborRe = append(ca.neighborRe, re)
		}
		for _, p := range a.InterfaceRegexes {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("area %q interface regex %q: %w", a.AreaID, p, err)
			}
			ca.interfaceRe = append(ca.interfaceRe, re)
		}
		out = append(out, ca)
	}
	return out, nil
}

// matchArea returns the areaId of the first entry (in config order) whose
// interface regexes accept ifName AND whose neighbor regexes accept
// remoteNodeName. An entry matches a regex list if ANY regex in the list
// matches. An empty areas list means "default area" / interop mode
// (spec.md §3).
func matchArea(areas []compiledArea, ifName, remoteNodeName string) string {
	if len(areas) == 0 {
		return spark2msg.DefaultAreaID
	}

	lcIf := strings.ToLower(ifName)
	lcNode := strings.ToLower(remoteNodeName)

	for _, a := range areas {
		if anyRegexMatches(a.interfaceRe, lcIf) && anyRegexMatches(a.neighborRe, lcNode) {
			return a.areaID
		}
	}
	return spark2msg.DefaultAreaID
}

func anyRegexMatches(patterns []*regexp.Regexp, value string) bool {
	for _, re := range patterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
