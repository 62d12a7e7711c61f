package extract

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/model"
)

// cleanJSON strips markdown code fences and surrounding prose, keeping the
// text from the first '{' to the last '}'.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// decodeObject parses the model response into a generic JSON object.
func decodeObject(text string) (map[string]any, error) {
	cleaned := cleanJSON(text)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, eris.New("no JSON object in response")
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Normalize coerces a loosely-typed model answer into an ExtractionResult.
// Missing or mistyped fields take their documented defaults; slices are
// never nil and entries without their key field are skipped.
func Normalize(raw map[string]any) *model.ExtractionResult {
	res := &model.ExtractionResult{
		CallType:         parseEnum(raw, "call_type", model.ParseCallType),
		OfferingPitched:  parseEnum(raw, "offering_pitched", model.ParseOffering),
		CompanyName:      str(raw["company_name"]),
		Outcome:          parseEnum(raw, "outcome", model.ParseOutcome),
		DealSize:         parseDealSize(raw["deal_size"]),
		QualityScore:     parseQualityScore(raw["quality_score"]),
		QualityRationale: str(raw["quality_rationale"]),

		Prospects:         []model.ProspectRef{},
		TeamMembers:       []model.TeamMemberRef{},
		Technologies:      []string{},
		Objections:        []model.ObjectionRef{},
		ProspectQuestions: []string{},
		KeyQuotes:         []model.KeyQuote{},
		FollowUps:         []model.FollowUp{},
		CounterResponses:  []model.CounterResponse{},
	}
	if res.CompanyName == "" {
		res.CompanyName = model.UnknownCompany
	}

	for _, item := range arr(raw["prospects"]) {
		name, fields := nameOrObject(item, "name")
		if name == "" {
			continue
		}
		res.Prospects = append(res.Prospects, model.ProspectRef{Name: name, Role: str(fields["role"])})
	}

	for _, item := range arr(raw["team_members"]) {
		name, fields := nameOrObject(item, "name")
		email := str(fields["email"])
		if name == "" && email == "" {
			continue
		}
		res.TeamMembers = append(res.TeamMembers, model.TeamMemberRef{Name: name, Email: email})
	}

	for _, item := range arr(raw["technologies"]) {
		if name, _ := nameOrObject(item, "name"); name != "" {
			res.Technologies = append(res.Technologies, name)
		}
	}

	for _, item := range arr(raw["objections"]) {
		o := obj(item)
		key := objectionKey(o["type"])
		if key == "" {
			continue
		}
		res.Objections = append(res.Objections, model.ObjectionRef{
			TypeKey: key,
			Quote:   str(o["quote"]),
			Context: str(o["context"]),
		})
	}

	for _, item := range arr(raw["prospect_questions"]) {
		if q, _ := nameOrObject(item, "question"); q != "" {
			res.ProspectQuestions = append(res.ProspectQuestions, q)
		}
	}

	for _, item := range arr(raw["key_quotes"]) {
		text, q := nameOrObject(item, "text")
		if text == "" {
			continue
		}
		res.KeyQuotes = append(res.KeyQuotes, model.KeyQuote{
			Speaker: str(q["speaker"]),
			Text:    text,
			Context: str(q["context"]),
		})
	}

	for _, item := range arr(raw["follow_ups"]) {
		action, f := nameOrObject(item, "action")
		if action == "" {
			action = str(f["text"])
		}
		if action == "" {
			continue
		}
		res.FollowUps = append(res.FollowUps, model.FollowUp{Action: action, Assignee: str(f["assignee"])})
	}

	for _, item := range arr(raw["counter_responses"]) {
		c := obj(item)
		key := objectionKey(c["objection_type"])
		if key == "" {
			continue
		}
		eff, ok := model.ParseEffectiveness(str(c["effectiveness"]))
		if !ok && str(c["effectiveness"]) != "" {
			zap.L().Debug("extract: invalid effectiveness", zap.Any("value", c["effectiveness"]))
		}
		res.CounterResponses = append(res.CounterResponses, model.CounterResponse{
			ObjectionKey:  key,
			Response:      str(c["response"]),
			Effectiveness: eff,
		})
	}

	return res
}

func parseEnum[T ~string](raw map[string]any, field string, parse func(string) (T, bool)) T {
	s := str(raw[field])
	v, ok := parse(s)
	if !ok && s != "" {
		zap.L().Debug("extract: invalid enum value, using default",
			zap.String("field", field),
			zap.String("value", s),
			zap.String("default", string(v)),
		)
	}
	return v
}

func parseQualityScore(v any) int {
	switch v.(type) {
	case nil, bool, map[string]any, []any:
		return model.DefaultQualityScore
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(cast.ToString(v)))
	if err != nil || math.IsNaN(f) {
		return model.DefaultQualityScore
	}
	// Clamp before converting; int() of an out-of-range float is undefined.
	switch {
	case f >= float64(model.MaxQualityScore):
		return model.MaxQualityScore
	case f < float64(model.MinQualityScore):
		return model.MinQualityScore
	}
	return int(f)
}

// parseDealSize accepts a JSON number or strings like "$50k", "1.2M",
// "50,000 USD". Anything else, a negative amount, NaN or an infinity is nil.
func parseDealSize(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		s = strings.NewReplacer("$", "", ",", "", "usd", "", " ", "").Replace(s)
		mul := 1.0
		switch {
		case strings.HasSuffix(s, "k"):
			mul, s = 1e3, strings.TrimSuffix(s, "k")
		case strings.HasSuffix(s, "m"):
			mul, s = 1e6, strings.TrimSuffix(s, "m")
		}
		n, err := cast.ToFloat64E(s)
		if err != nil || s == "" {
			return nil
		}
		f = n * mul
	default:
		return nil
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func objectionKey(v any) string {
	s := strings.ToLower(str(v))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// str returns a trimmed string for scalar values and "" for anything else.
func str(v any) string {
	switch v.(type) {
	case nil, map[string]any, []any:
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func arr(v any) []any {
	a, _ := v.([]any)
	return a
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// nameOrObject handles array entries that are either a bare string or an
// object. It returns the key field's value and the object, which is nil
// for bare strings.
func nameOrObject(item any, key string) (string, map[string]any) {
	if s, ok := item.(string); ok {
		return strings.TrimSpace(s), nil
	}
	o := obj(item)
	return str(o[key]), o
}
