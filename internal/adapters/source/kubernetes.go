package source

import (
	"context"
	"encoding/json"
	"strings"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Annotations and labels read from manifests.
const (
	AnnotationApplication   = "moniker.spinnaker.io/application"
	AnnotationCluster       = "moniker.spinnaker.io/cluster"
	AnnotationLoadBalancers = "traffic.spinnaker.io/load-balancers"
	LabelName               = "app.kubernetes.io/name"
)

// DefaultNamespace is used for manifests and agents without a namespace.
const DefaultNamespace = "default"

// Health values reported for pods.
const (
	HealthUp       = "Up"
	HealthDown     = "Down"
	HealthStarting = "Starting"
	HealthUnknown  = "Unknown"
)

var kindTypes = map[string]string{
	"ReplicaSet":  domain.TypeServerGroups,
	"StatefulSet": domain.TypeServerGroups,
	"DaemonSet":   domain.TypeServerGroups,
	"Pod":         domain.TypeInstances,
	"Service":     domain.TypeLoadBalancers,
	"Deployment":  domain.TypeServerGroupManagers,
}

// TypeForKind returns the entry type of a Kubernetes kind.
func TypeForKind(kind string) (string, bool) {
	typ, ok := kindTypes[kind]
	return typ, ok
}

// KubernetesAdapter lists manifests of one kind in one namespace.
// The agent region is the namespace.
type KubernetesAdapter struct {
	cfg domain.AgentConfig
	typ string
}

var _ ports.ResourceAdapter = (*KubernetesAdapter)(nil)

// NewKubernetesAdapter creates a KubernetesAdapter for cfg.Kind.
func NewKubernetesAdapter(cfg domain.AgentConfig) (*KubernetesAdapter, error) {
	typ, ok := TypeForKind(cfg.Kind)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownProvider, "unsupported kubernetes kind"), "kind", cfg.Kind)
	}
	if cfg.Region == "" {
		cfg.Region = DefaultNamespace
	}
	return &KubernetesAdapter{cfg: cfg, typ: typ}, nil
}

// Scope implements ports.ResourceAdapter.
func (a *KubernetesAdapter) Scope() ports.Scope {
	return ports.Scope{
		Kind:    a.cfg.Kind,
		Type:    a.typ,
		Account: a.cfg.Account,
		Region:  a.cfg.Region,
	}
}

// List implements ports.ResourceAdapter.
func (a *KubernetesAdapter) List(ctx context.Context, req ports.ListRequest) ([]ports.RawResource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := expand(a.cfg.Sources)
	if err != nil {
		return nil, err
	}
	docs, err := decodeFiles(files)
	if err != nil {
		return nil, err
	}

	var raws []ports.RawResource
	for _, doc := range docs {
		u := &unstructured.Unstructured{Object: doc}
		if u.GetKind() != a.cfg.Kind || namespace(u) != a.cfg.Region {
			continue
		}
		if req.Name != "" && u.GetName() != req.Name {
			continue
		}
		raws = append(raws, ports.RawResource{Name: u.GetName(), Document: doc})
	}
	return paginate(raws, req), nil
}

// Convert implements ports.ResourceAdapter.
func (a *KubernetesAdapter) Convert(raw ports.RawResource) (domain.Resource, error) {
	u := &unstructured.Unstructured{Object: raw.Document}
	if u.GetName() == "" {
		return domain.Resource{}, zerr.Wrap(domain.ErrSourceParseFailed, "manifest has no name")
	}

	attrs := domain.Attributes{
		"kind":      domain.String(u.GetKind()),
		"namespace": domain.String(namespace(u)),
	}
	if uid := string(u.GetUID()); uid != "" {
		attrs["uid"] = domain.String(uid)
	}
	if labels := u.GetLabels(); len(labels) > 0 {
		fields := make(map[string]domain.Value, len(labels))
		for k, v := range labels {
			fields[k] = domain.String(v)
		}
		attrs["labels"] = domain.Map(fields)
	}

	switch a.typ {
	case domain.TypeInstances:
		attrs["health"] = domain.String(podHealth(u))
	case domain.TypeServerGroups, domain.TypeServerGroupManagers:
		if replicas, found := number(u, "spec", "replicas"); found {
			attrs["replicas"] = domain.Number(replicas)
		}
		if ready, found := number(u, "status", "readyReplicas"); found {
			attrs["readyReplicas"] = domain.Number(ready)
		}
	case domain.TypeLoadBalancers:
		if svcType, found, _ := unstructured.NestedString(u.Object, "spec", "type"); found {
			attrs["serviceType"] = domain.String(svcType)
		}
		if ip, found, _ := unstructured.NestedString(u.Object, "spec", "clusterIP"); found {
			attrs["clusterIP"] = domain.String(ip)
		}
	}

	r := domain.Resource{
		Type:       a.typ,
		Account:    a.cfg.Account,
		Region:     a.cfg.Region,
		Name:       u.GetName(),
		Attributes: attrs,
		Artifact:   image(u),
		Moniker:    moniker(u),
	}
	for _, owner := range u.GetOwnerReferences() {
		typ, ok := TypeForKind(owner.Kind)
		if !ok {
			continue
		}
		r.Owners = append(r.Owners, domain.Ref{Type: typ, Account: a.cfg.Account, Region: a.cfg.Region, Name: owner.Name})
	}
	siblings, err := a.loadBalancers(u)
	if err != nil {
		return domain.Resource{}, zerr.With(err, "name", u.GetName())
	}
	r.Siblings = siblings
	return r, nil
}

// loadBalancers reads the JSON list of "service <name>" entries from the
// load balancer annotation.
func (a *KubernetesAdapter) loadBalancers(u *unstructured.Unstructured) ([]domain.Ref, error) {
	value, ok := u.GetAnnotations()[AnnotationLoadBalancers]
	if !ok || value == "" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(value), &names); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrSourceParseFailed.Error()), "annotation", AnnotationLoadBalancers)
	}
	refs := make([]domain.Ref, 0, len(names))
	for _, n := range names {
		kind, name, found := strings.Cut(strings.TrimSpace(n), " ")
		if !found || !strings.EqualFold(kind, "service") {
			continue
		}
		refs = append(refs, domain.Ref{
			Type:    domain.TypeLoadBalancers,
			Account: a.cfg.Account,
			Region:  a.cfg.Region,
			Name:    strings.TrimSpace(name),
		})
	}
	return refs, nil
}

// number reads a numeric field whatever integer width the decoder chose.
func number(u *unstructured.Unstructured, fields ...string) (float64, bool) {
	val, found, err := unstructured.NestedFieldNoCopy(u.Object, fields...)
	if err != nil || !found {
		return 0, false
	}
	switch n := val.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func namespace(u *unstructured.Unstructured) string {
	if ns := u.GetNamespace(); ns != "" {
		return ns
	}
	return DefaultNamespace
}

// moniker reads the explicit grouping, or nil to fall back to name parsing.
func moniker(u *unstructured.Unstructured) *domain.Moniker {
	annotations := u.GetAnnotations()
	app := annotations[AnnotationApplication]
	if app == "" {
		app = u.GetLabels()[LabelName]
	}
	cluster := annotations[AnnotationCluster]
	if app == "" && cluster == "" {
		return nil
	}
	return &domain.Moniker{App: app, Cluster: cluster}
}

// image returns the first container image of a pod or pod template.
func image(u *unstructured.Unstructured) string {
	path := []string{"spec", "template", "spec", "containers"}
	if u.GetKind() == "Pod" {
		path = []string{"spec", "containers"}
	}
	containers, found, err := unstructured.NestedSlice(u.Object, path...)
	if err != nil || !found || len(containers) == 0 {
		return ""
	}
	first, ok := containers[0].(map[string]any)
	if !ok {
		return ""
	}
	img, _ := first["image"].(string)
	return img
}

func podHealth(u *unstructured.Unstructured) string {
	conditions, _, _ := unstructured.NestedSlice(u.Object, "status", "conditions")
	for _, c := range conditions {
		cond, ok := c.(map[string]any)
		if !ok || cond["type"] != "Ready" {
			continue
		}
		if cond["status"] == "True" {
			return HealthUp
		}
		return HealthDown
	}

	phase, _, _ := unstructured.NestedString(u.Object, "status", "phase")
	switch phase {
	case "":
		return HealthUnknown
	case "Pending":
		return HealthStarting
	case "Running", "Succeeded":
		return HealthUp
	default:
		return HealthDown
	}
}
