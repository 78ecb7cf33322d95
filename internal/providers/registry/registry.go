// Package registry maps caller-facing provider and model labels onto the
// configured adapters.
package registry

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
	"filmgen/internal/providers"
)

// alias maps any label containing one of needles to service/model.
// passModel keeps the caller's model id when the match came from the model
// label, for services whose model ids are already machine-readable.
type alias struct {
	needles   []string
	service   string
	model     string
	passModel bool
}

// Order matters: the first entry with a matching needle wins.
var aliasTable = map[domain.Kind][]alias{
	domain.KindImage: {
		{needles: []string{"gpt-image", "gptimage"}, service: infra.ServiceOpenAI, model: "gpt-image-1"},
		{needles: []string{"dall-e", "dalle", "dall"}, service: infra.ServiceOpenAI, model: "dall-e-3"},
		{needles: []string{"openart"}, service: infra.ServiceOpenArt, model: "sdxl"},
		{needles: []string{"flux", "bfl", "black-forest"}, service: infra.ServiceBFL, model: "flux-pro-1.1", passModel: true},
		{needles: []string{"openai"}, service: infra.ServiceOpenAI, model: "dall-e-3"},
		{needles: []string{"gemini", "imagen", "nano-banana"}, service: infra.ServiceGemini, model: "gemini-2.5-flash-image"},
	},
	domain.KindVideo: {
		{needles: []string{"runway", "gen-4", "gen4"}, service: infra.ServiceRunway, model: "gen4_turbo", passModel: true},
	},
	domain.KindVision: {
		{needles: []string{"gemini"}, service: infra.ServiceGemini, model: "gemini-2.5-flash", passModel: true},
		{needles: []string{"claude", "anthropic"}, service: infra.ServiceAnthropic, model: "claude-3-5-sonnet-latest", passModel: true},
		{needles: []string{"gpt", "openai"}, service: infra.ServiceOpenAI, model: "gpt-4o-mini", passModel: true},
	},
	domain.KindText: {
		{needles: []string{"claude", "anthropic"}, service: infra.ServiceAnthropic, model: "claude-3-5-sonnet-latest", passModel: true},
		{needles: []string{"gemini"}, service: infra.ServiceGemini, model: "gemini-2.5-flash", passModel: true},
		{needles: []string{"gpt", "openai"}, service: infra.ServiceOpenAI, model: "gpt-4o-mini", passModel: true},
	},
}

// baselines apply when no alias matches.
var baselines = map[domain.Kind]struct{ service, model string }{
	domain.KindImage:  {infra.ServiceOpenAI, "dall-e-3"},
	domain.KindVideo:  {infra.ServiceRunway, "gen4_turbo"},
	domain.KindVision: {infra.ServiceGemini, "gemini-2.5-flash"},
	domain.KindText:   {infra.ServiceOpenAI, "gpt-4o-mini"},
}

// Route is the outcome of resolving a request's labels.
type Route struct {
	Adapter providers.Adapter
	Service string
	Model   string
	// Defaulted is set when neither label matched and the baseline was used.
	Defaulted bool
}

// Registry holds one adapter per service. It is read-only after New.
type Registry struct {
	adapters map[string]providers.Adapter
	logger   *infra.Logger
}

func New(logger *infra.Logger, adapters ...providers.Adapter) *Registry {
	r := &Registry{adapters: make(map[string]providers.Adapter, len(adapters)), logger: infra.OrNop(logger)}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Service()] = a
		}
	}
	return r
}

// Adapter returns the adapter registered for service.
func (r *Registry) Adapter(service string) (providers.Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(service))]
	return a, ok
}

// Services lists registered service ids in sorted order.
func (r *Registry) Services() []string {
	out := make([]string, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Resolve picks the adapter and model for a request. The model label is
// matched before the provider label.
func (r *Registry) Resolve(kind domain.Kind, provider, model string) (Route, error) {
	table, ok := aliasTable[kind]
	if !ok {
		return Route{}, domain.Invalid("unsupported request kind %q", kind)
	}
	modelLabel := NormalizeLabel(model)
	providerLabel := NormalizeLabel(provider)
	rawModel := strings.TrimSpace(model)

	route := Route{}
	if entry, hit := match(table, modelLabel); hit {
		route.Service, route.Model = entry.service, entry.model
		if entry.passModel && rawModel != "" {
			route.Model = rawModel
		}
	} else if entry, hit := match(table, providerLabel); hit {
		route.Service, route.Model = entry.service, entry.model
		if rawModel != "" {
			route.Model = rawModel
		}
	} else if _, registered := r.adapters[providerLabel]; registered && providerLabel != "" {
		route.Service, route.Model = providerLabel, rawModel
	} else {
		base := baselines[kind]
		route.Service, route.Model, route.Defaulted = base.service, base.model, true
		r.logger.Warn().
			Str("kind", string(kind)).
			Str("provider", provider).
			Str("model", model).
			Str("resolved", base.service+"/"+base.model).
			Msg("registry: no alias matched, using baseline")
	}

	adapter, ok := r.adapters[route.Service]
	if !ok {
		return Route{}, domain.Invalid("provider %q is not configured", route.Service)
	}
	if !providers.Supports(adapter, kind) {
		return Route{}, domain.Invalid("provider %q does not support %s requests", route.Service, kind)
	}
	route.Adapter = adapter
	return route, nil
}

func match(table []alias, label string) (alias, bool) {
	if label == "" {
		return alias{}, false
	}
	for _, entry := range table {
		for _, needle := range entry.needles {
			if strings.Contains(label, needle) {
				return entry, true
			}
		}
	}
	return alias{}, false
}

// NormalizeLabel case-folds a human label and turns separators into single
// hyphens, so "DALL·E 3" and "dall_e-3" compare equal.
func NormalizeLabel(label string) string {
	folded := cases.Fold().String(strings.TrimSpace(label))
	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := false
	for _, r := range folded {
		switch r {
		case ' ', '_', '·', '.', '-', '\t':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			lastHyphen = true
		default:
			b.WriteRune(r)
			lastHyphen = false
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
