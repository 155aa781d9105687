package collector

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"CookieBroker/internal/model"
)

// BuildingNames lists the buildings in save order.
var BuildingNames = [...]string{
	"cursor", "grandma", "farm", "mine", "factory", "bank", "temple", "wizard tower",
	"shipment", "alchemy lab", "portal", "time machine", "antimatter condenser",
	"prism", "chancemaker", "fractal engine", "javascript console", "idleverse",
}

const (
	sectionMisc      = 4
	sectionBuildings = 5

	miscCookies  = 0
	miscPeakCps  = 50
	buildingBank = "bank"
)

// SaveFileSource reads the game's save file from disk.
type SaveFileSource struct {
	Path string
	// PeakCpsOverride replaces the decoded peak CpS when positive.
	PeakCpsOverride float64
}

// NewSaveFileSource creates a source for the save at path.
func NewSaveFileSource(path string, peakOverride float64) *SaveFileSource {
	return &SaveFileSource{Path: path, PeakCpsOverride: peakOverride}
}

func (s *SaveFileSource) Name() string { return "savefile" }

// ReadState reads and decodes the save file.
func (s *SaveFileSource) ReadState() (*model.GameState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}
	state, err := DecodeSave(data)
	if err != nil {
		return nil, err
	}
	if s.PeakCpsOverride > 0 {
		state.PeakCps = s.PeakCpsOverride
	}
	return state, nil
}

// DecodeSave turns a raw save blob into the fields the market needs.
func DecodeSave(data []byte) (*model.GameState, error) {
	sections, err := decodeSections(data)
	if err != nil {
		return nil, err
	}
	if len(sections) <= sectionBuildings {
		return nil, fmt.Errorf("decode save: %d sections, want at least %d", len(sections), sectionBuildings+1)
	}

	state := &model.GameState{}

	misc := strings.Split(sections[sectionMisc], ";")
	if state.Cookies, err = miscFloat(misc, miscCookies); err != nil {
		return nil, fmt.Errorf("decode save: cookies: %w", err)
	}
	// Older saves predate the peak CpS field; leave it zero and let the override cover it.
	if len(misc) > miscPeakCps {
		if state.PeakCps, err = miscFloat(misc, miscPeakCps); err != nil {
			return nil, fmt.Errorf("decode save: peak cps: %w", err)
		}
	}

	state.Buildings, err = decodeBuildings(sections[sectionBuildings])
	if err != nil {
		return nil, err
	}
	if bank, ok := state.Buildings[buildingBank]; ok {
		state.MarketSave = bank.Minigame
	}
	return state, nil
}

// decodeSections strips the trailing "%21END%21" marker, base64-decodes and splits on '|'.
func decodeSections(data []byte) ([]string, error) {
	raw := strings.TrimSpace(string(data))
	if i := strings.IndexByte(raw, '%'); i >= 0 {
		raw = raw[:i]
	}
	if pad := len(raw) % 4; pad != 0 {
		raw += strings.Repeat("=", 4-pad)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		var urlErr error
		decoded, urlErr = base64.URLEncoding.DecodeString(raw)
		if urlErr != nil {
			return nil, fmt.Errorf("decode save: base64: %w", err)
		}
	}
	return strings.Split(string(decoded), "|"), nil
}

// decodeBuildings reads amount, level and minigame from "amount,bought,totalCookies,level,minigame,...;" in save order.
func decodeBuildings(section string) (map[string]model.Building, error) {
	out := make(map[string]model.Building, len(BuildingNames))
	for i, entry := range strings.Split(section, ";") {
		if i >= len(BuildingNames) {
			break
		}
		if strings.TrimSpace(entry) == "" {
			continue
		}
		f := strings.Split(entry, ",")
		if len(f) < 4 {
			return nil, fmt.Errorf("decode save: building %s has %d fields", BuildingNames[i], len(f))
		}
		b := model.Building{Name: BuildingNames[i]}
		var err error
		if b.Amount, err = strconv.Atoi(f[0]); err != nil {
			return nil, fmt.Errorf("decode save: %s amount: %w", b.Name, err)
		}
		if b.Level, err = strconv.Atoi(f[3]); err != nil {
			return nil, fmt.Errorf("decode save: %s level: %w", b.Name, err)
		}
		if len(f) > 4 {
			b.Minigame = f[4]
		}
		out[b.Name] = b
	}
	return out, nil
}

func miscFloat(fields []string, i int) (float64, error) {
	if i >= len(fields) {
		return 0, fmt.Errorf("field %d missing", i)
	}
	return strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
}
