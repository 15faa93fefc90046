package scenario

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	galacticwar_entities "github.com/ta-forever/server/pkg/domain/galacticwar/entities"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

// gmlToken categories, mirroring the source server's networkx-derived GML
// tokenizer: a key, a number, a quoted string, or a nested dict delimiter.
type gmlTokenKind int

const (
	gmlKey gmlTokenKind = iota
	gmlNumber
	gmlString
	gmlDictStart
	gmlDictEnd
)

type gmlToken struct {
	kind  gmlTokenKind
	key   string
	num   float64
	str   string
}

var gmlTokenPattern = regexp.MustCompile(`^[A-Za-z][0-9A-Za-z_]*|^[+-]?(?:[0-9]*\.[0-9]+|[0-9]+\.?[0-9]*)|^".*?"|^\[|^\]`)

// tokenizeGML lexes a GML file's content into a flat token stream, skipping
// whitespace and "#"-prefixed comments the way the Python reference's
// regex-driven tokenizer does.
func tokenizeGML(content string) ([]gmlToken, error) {
	var tokens []gmlToken
	lineNo := 0
	for _, line := range strings.Split(content, "\n") {
		lineNo++
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		pos := 0
		for pos < len(line) {
			for pos < len(line) && (line[pos] == ' ' || line[pos] == '\t' || line[pos] == '\r') {
				pos++
			}
			if pos >= len(line) {
				break
			}
			match := gmlTokenPattern.FindString(line[pos:])
			if match == "" {
				return nil, fmt.Errorf("gml: cannot tokenize %q at line %d", line[pos:], lineNo)
			}
			switch {
			case match == "[":
				tokens = append(tokens, gmlToken{kind: gmlDictStart})
			case match == "]":
				tokens = append(tokens, gmlToken{kind: gmlDictEnd})
			case match[0] == '"':
				tokens = append(tokens, gmlToken{kind: gmlString, str: strings.Trim(match, `"`)})
			case (match[0] >= '0' && match[0] <= '9') || match[0] == '+' || match[0] == '-':
				f, err := strconv.ParseFloat(match, 64)
				if err != nil {
					return nil, fmt.Errorf("gml: invalid number %q at line %d: %w", match, lineNo, err)
				}
				tokens = append(tokens, gmlToken{kind: gmlNumber, num: f})
			default:
				tokens = append(tokens, gmlToken{kind: gmlKey, key: match})
			}
			pos += len(match)
		}
	}
	return tokens, nil
}

// gmlDict maps each key to its values, each either a scalar (string or
// float64) or a nested gmlDict; GML allows repeated keys (e.g. multiple "node" entries), so each key maps
// to a slice of values.
type gmlDict map[string][]interface{}

func parseGMLDict(tokens []gmlToken, pos int) (gmlDict, int, error) {
	dict := gmlDict{}
	for pos < len(tokens) && tokens[pos].kind == gmlKey {
		key := tokens[pos].key
		pos++
		if pos >= len(tokens) {
			return nil, pos, fmt.Errorf("gml: unexpected end of input after key %q", key)
		}
		var value interface{}
		switch tokens[pos].kind {
		case gmlNumber:
			value = tokens[pos].num
			pos++
		case gmlString:
			value = tokens[pos].str
			pos++
		case gmlDictStart:
			pos++
			var nested gmlDict
			var err error
			nested, pos, err = parseGMLDict(tokens, pos)
			if err != nil {
				return nil, pos, err
			}
			if pos >= len(tokens) || tokens[pos].kind != gmlDictEnd {
				return nil, pos, fmt.Errorf("gml: expected ']' closing %q", key)
			}
			pos++
			value = nested
		default:
			return nil, pos, fmt.Errorf("gml: unexpected token after key %q", key)
		}
		dict[key] = append(dict[key], value)
	}
	return dict, pos, nil
}

func (d gmlDict) firstString(key string) string {
	if v, ok := d[key]; ok && len(v) > 0 {
		if s, ok := v[0].(string); ok {
			return s
		}
	}
	return ""
}

func (d gmlDict) firstFloat(key string) (float64, bool) {
	if v, ok := d[key]; ok && len(v) > 0 {
		if f, ok := v[0].(float64); ok {
			return f, true
		}
	}
	return 0, false
}

func (d gmlDict) firstDict(key string) (gmlDict, bool) {
	if v, ok := d[key]; ok && len(v) > 0 {
		if nested, ok := v[0].(gmlDict); ok {
			return nested, true
		}
	}
	return nil, false
}

func (d gmlDict) all(key string) []interface{} {
	return d[key]
}

// loadGML imports a legacy scenario authored in GML (the source server's
// original format, via the networkx GML writer): "graph [ node [...] edge
// [...] ]" with node attributes id/label/map/mod/size/score/capital_of/
// controlled_by/belligerents and edges giving the jump gate topology.
func (r *FileRepository) loadGML(path string, scenarioName string) (*galacticwar_entities.State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gml scenario %s: %w", path, err)
	}

	tokens, err := tokenizeGML(string(raw))
	if err != nil {
		return nil, fmt.Errorf("tokenizing gml scenario %s: %w", path, err)
	}

	root, _, err := parseGMLDict(tokens, 0)
	if err != nil {
		return nil, fmt.Errorf("parsing gml scenario %s: %w", path, err)
	}

	graph, ok := root.firstDict("graph")
	if !ok {
		return nil, fmt.Errorf("gml scenario %s: no top-level 'graph' entry", path)
	}

	state := galacticwar_entities.NewState(scenarioName)
	planetsByGMLID := make(map[int]*galacticwar_entities.Planet)

	for _, raw := range graph.all("node") {
		node, ok := raw.(gmlDict)
		if !ok {
			continue
		}
		id, _ := node.firstFloat("id")
		label := node.firstString("label")
		if label == "" {
			label = fmt.Sprintf("planet-%d", int(id))
		}
		p := galacticwar_entities.NewPlanet(int(id), label)
		if m := node.firstString("map"); m != "" {
			p.Map = m
		}
		if mod := node.firstString("mod"); mod != "" {
			p.Mod = mod
		}
		if size, ok := node.firstFloat("size"); ok {
			p.Size = size
		}
		if scoreDict, ok := node.firstDict("score"); ok {
			p.Score = make(map[game_vo.Faction]float64)
			for factionName, values := range scoreDict {
				if f, err := game_vo.ParseFaction(factionName); err == nil && len(values) > 0 {
					if score, ok := values[0].(float64); ok {
						p.Score[f] = score
					}
				}
			}
		}
		if capitalOf := node.firstString("capital_of"); capitalOf != "" {
			if f, err := game_vo.ParseFaction(capitalOf); err == nil {
				p.CapitalOf = &f
			}
		}
		if controlledBy := node.firstString("controlled_by"); controlledBy != "" {
			if f, err := game_vo.ParseFaction(controlledBy); err == nil {
				p.ControlledBy = &f
			}
		}
		planetsByGMLID[int(id)] = p
		state.AddPlanet(p)
	}

	for _, raw := range graph.all("edge") {
		edge, ok := raw.(gmlDict)
		if !ok {
			continue
		}
		source, _ := edge.firstFloat("source")
		target, _ := edge.firstFloat("target")
		if src, ok := planetsByGMLID[int(source)]; ok {
			src.JumpGates = append(src.JumpGates, int(target))
		}
		if tgt, ok := planetsByGMLID[int(target)]; ok {
			tgt.JumpGates = append(tgt.JumpGates, int(source))
		}
	}

	return state, nil
}
