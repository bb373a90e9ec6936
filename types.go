package budgetguard

import "strings"

// Deployment is a routable target (model + endpoint) belonging to exactly
// one provider. The filter never mutates deployments; it only narrows the
// list it is given.
type Deployment struct {
	ID       string
	Provider string            // explicit provider name; may be empty if derivable from Model
	Model    string            // model name, optionally provider-prefixed, e.g. "openai/gpt-4o"
	Params   map[string]string // opaque routing parameters, untouched by this package
}

// RequestResult carries the metadata of a completed request needed to
// attribute its measured cost to a provider.
type RequestResult struct {
	RequestID string
	Provider  string
	Model     string
	Cost      float64 // measured cost in dollars; zero is valid
}

// ProviderResolver derives a provider identifier from a deployment or a
// completed request. The second return value reports whether resolution
// succeeded. A failed resolution is not an error here; the caller decides
// what it means. The filter treats the deployment as unconstrained, the
// recorder treats it as a caller bug.
type ProviderResolver interface {
	ResolveDeployment(d Deployment) (string, bool)
	ResolveResult(r RequestResult) (string, bool)
}

// PrefixResolver resolves providers from the explicit Provider field,
// falling back to the "provider/model" prefix convention of the model name.
type PrefixResolver struct{}

var _ ProviderResolver = PrefixResolver{}

// ResolveDeployment returns the deployment's provider.
func (PrefixResolver) ResolveDeployment(d Deployment) (string, bool) {
	return resolveProvider(d.Provider, d.Model)
}

// ResolveResult returns the provider that served the completed request.
func (PrefixResolver) ResolveResult(r RequestResult) (string, bool) {
	return resolveProvider(r.Provider, r.Model)
}

func resolveProvider(provider, model string) (string, bool) {
	if provider != "" {
		return provider, true
	}
	if p, _, ok := strings.Cut(model, "/"); ok && p != "" {
		return p, true
	}
	return "", false
}
