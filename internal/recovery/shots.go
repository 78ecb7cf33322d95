package recovery

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"filmgen/internal/domain"
)

// rule maps a set of needles to an enum value. Rules are tried in order and
// a needle only matches at the start of a word, so "low" hits "lower" but not
// "following".
type rule[T ~string] struct {
	needles []string
	value   T
}

var shotTypeRules = []rule[domain.ShotType]{
	{[]string{"extreme wide", "extreme long", "establishing"}, domain.ShotExtremeWide},
	{[]string{"extreme close", "macro"}, domain.ShotExtremeCloseUp},
	{[]string{"over the shoulder", "over shoulder"}, domain.ShotOverTheShoulder},
	{[]string{"point of view", "pov", "subjective"}, domain.ShotPOV},
	{[]string{"insert", "cutaway", "detail"}, domain.ShotInsert},
	{[]string{"medium close", "mcu"}, domain.ShotMediumCloseUp},
	{[]string{"close"}, domain.ShotCloseUp},
	{[]string{"full", "head to toe"}, domain.ShotFull},
	{[]string{"wide", "long shot"}, domain.ShotWide},
	{[]string{"medium", "mid shot", "waist"}, domain.ShotMedium},
}

var cameraAngleRules = []rule[domain.CameraAngle]{
	{[]string{"bird", "aerial", "overhead", "drone", "top down"}, domain.AngleBirdEye},
	{[]string{"worm"}, domain.AngleWormEye},
	{[]string{"dutch", "tilt", "canted", "oblique"}, domain.AngleDutch},
	{[]string{"low", "looking up"}, domain.AngleLow},
	{[]string{"high", "looking down"}, domain.AngleHigh},
	{[]string{"eye", "straight on", "neutral"}, domain.AngleEyeLevel},
}

var movementRules = []rule[domain.Movement]{
	{[]string{"steadicam", "gimbal"}, domain.MoveSteadicam},
	{[]string{"handheld", "hand held", "shaky"}, domain.MoveHandheld},
	{[]string{"crane", "jib", "boom"}, domain.MoveCrane},
	{[]string{"dolly", "push in", "pull out", "pull back"}, domain.MoveDolly},
	{[]string{"track", "follow", "truck"}, domain.MoveTracking},
	{[]string{"zoom"}, domain.MoveZoom},
	{[]string{"pan"}, domain.MovePan},
	{[]string{"tilt"}, domain.MoveTilt},
	{[]string{"static", "locked", "still", "fixed", "none"}, domain.MoveStatic},
}

var (
	shotTypeKeys    = []string{"shot_type", "shotType", "type", "shot_size", "shotSize", "framing"}
	cameraAngleKeys = []string{"camera_angle", "cameraAngle", "angle"}
	movementKeys    = []string{"camera_movement", "cameraMovement", "movement", "motion"}
	descriptionKeys = []string{"description", "desc", "visual", "visual_description", "visualDescription"}
	actionKeys      = []string{"action", "blocking"}
	dialogueKeys    = []string{"dialogue", "dialog", "lines"}
	characterKeys   = []string{"characters", "character", "cast"}
	durationKeys    = []string{"duration", "duration_seconds", "durationSeconds", "length"}
)

// ParseShots recovers a shot list from model output and normalizes every
// record. Numbering is 1-based in array order.
func ParseShots(raw string) ([]domain.ShotRecord, Strategy, error) {
	records, strategy, err := Recover(raw)
	if err != nil {
		return nil, "", err
	}
	shots := make([]domain.ShotRecord, 0, len(records))
	for i, rec := range records {
		shots = append(shots, NormalizeShot(i+1, rec))
	}
	return shots, strategy, nil
}

// NormalizeShot maps one raw record onto a ShotRecord. It never fails; every
// constrained field falls back to its default.
func NormalizeShot(number int, rec map[string]any) domain.ShotRecord {
	return domain.ShotRecord{
		ShotNumber:      number,
		ShotType:        normalizeEnum(stringField(rec, shotTypeKeys), shotTypeRules, domain.ShotTypes, domain.DefaultShotType),
		CameraAngle:     normalizeEnum(stringField(rec, cameraAngleKeys), cameraAngleRules, domain.CameraAngles, domain.DefaultCameraAngle),
		Movement:        normalizeEnum(stringField(rec, movementKeys), movementRules, domain.Movements, domain.DefaultMovement),
		Description:     strings.TrimSpace(stringField(rec, descriptionKeys)),
		Action:          strings.TrimSpace(stringField(rec, actionKeys)),
		Dialogue:        strings.TrimSpace(stringField(rec, dialogueKeys)),
		Characters:      characters(rec),
		DurationSeconds: duration(rec),
		Status:          domain.ShotStatusPlanned,
	}
}

// NormalizeCameraAngle is exposed for callers that only need the angle.
func NormalizeCameraAngle(raw string) domain.CameraAngle {
	return normalizeEnum(raw, cameraAngleRules, domain.CameraAngles, domain.DefaultCameraAngle)
}

func NormalizeShotType(raw string) domain.ShotType {
	return normalizeEnum(raw, shotTypeRules, domain.ShotTypes, domain.DefaultShotType)
}

func NormalizeMovement(raw string) domain.Movement {
	return normalizeEnum(raw, movementRules, domain.Movements, domain.DefaultMovement)
}

// normalizeEnum tries the heuristics first, then literal membership, then the
// default. Model output uses synonyms far more often than the exact token.
func normalizeEnum[T ~string](raw string, rules []rule[T], allowed []T, fallback T) T {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return fallback
	}
	spaced := strings.Join(strings.FieldsFunc(value, func(r rune) bool {
		return r == '-' || r == '_' || r == '/' || unicode.IsSpace(r)
	}), " ")
	bounded := " " + spaced
	for _, rl := range rules {
		for _, needle := range rl.needles {
			if strings.Contains(bounded, " "+needle) {
				return rl.value
			}
		}
	}
	hyphenated := strings.ReplaceAll(spaced, " ", "-")
	for _, v := range allowed {
		if string(v) == value || string(v) == hyphenated {
			return v
		}
	}
	return fallback
}

func lookup(rec map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(rec map[string]any, keys []string) string {
	v, ok := lookup(rec, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(t)
	}
}

func characters(rec map[string]any) []string {
	v, ok := lookup(rec, characterKeys)
	if !ok {
		return []string{}
	}
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			switch c := item.(type) {
			case string:
				raw = append(raw, c)
			case map[string]any:
				if name, ok := c["name"].(string); ok {
					raw = append(raw, name)
				}
			}
		}
	case string:
		raw = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ';' })
	}
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func duration(rec map[string]any) *int {
	v, ok := lookup(rec, durationKeys)
	if !ok {
		return nil
	}
	var seconds float64
	switch t := v.(type) {
	case float64:
		seconds = t
	case string:
		seconds, ok = leadingNumber(t)
		if !ok {
			return nil
		}
	default:
		return nil
	}
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil
	}
	n := int(math.Round(seconds))
	if n < 1 {
		n = 1
	}
	return &n
}

// leadingNumber parses "5", "5s", "4.5 seconds" and similar.
func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
