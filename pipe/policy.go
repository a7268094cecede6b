package pipe

import (
	"slices"

	"github.com/gogpu/gpucontext"
)

// Policy is the pipe-class fallback table of one hardware variant. For each
// role it lists, in order of preference, the pipe classes a layer may use.
// A role with an empty chain can never be placed on a pipe.
type Policy struct {
	Name   string
	Chains [numRoles][]Class
}

// Chain returns the ordered class chain for role.
func (p Policy) Chain(role Role) []Class {
	if role < 0 || role >= numRoles {
		return nil
	}
	return p.Chains[role]
}

// Allows reports whether a pipe of class c may serve role.
func (p Policy) Allows(role Role, c Class) bool {
	return slices.Contains(p.Chain(role), c)
}

// Built-in variant names.
const (
	VariantMDSS          = "mdss"
	VariantMDSSDMAShared = "mdss-dma-shared"
	VariantMDP3          = "mdp3"
	VariantVGOnly        = "vg-only"
)

var policies = gpucontext.NewRegistry[Policy](
	gpucontext.WithPriority(VariantMDSS, VariantMDSSDMAShared, VariantMDP3, VariantVGOnly),
)

func init() {
	RegisterPolicy(Policy{
		Name: VariantMDSS,
		Chains: [numRoles][]Class{
			RoleRGB:         {ClassRGB, ClassVG, ClassDMA},
			RoleRGBScaled:   {ClassRGB, ClassVG},
			RoleYUV:         {ClassVG},
			RoleFramebuffer: {ClassDMA, ClassRGB, ClassVG},
		},
	})
	// DMA pipes are reserved for writeback.
	RegisterPolicy(Policy{
		Name: VariantMDSSDMAShared,
		Chains: [numRoles][]Class{
			RoleRGB:         {ClassRGB, ClassVG},
			RoleRGBScaled:   {ClassRGB, ClassVG},
			RoleYUV:         {ClassVG},
			RoleFramebuffer: {ClassRGB, ClassVG},
		},
	})
	// No RGB pipes; the framebuffer always goes through DMA.
	RegisterPolicy(Policy{
		Name: VariantMDP3,
		Chains: [numRoles][]Class{
			RoleRGB:         {ClassDMA, ClassVG},
			RoleRGBScaled:   {ClassVG},
			RoleYUV:         {ClassVG},
			RoleFramebuffer: {ClassDMA},
		},
	})
	RegisterPolicy(Policy{
		Name: VariantVGOnly,
		Chains: [numRoles][]Class{
			RoleRGB:         {ClassVG},
			RoleRGBScaled:   {ClassVG},
			RoleYUV:         {ClassVG},
			RoleFramebuffer: {ClassVG},
		},
	})
}

// RegisterPolicy adds or replaces the policy named p.Name.
func RegisterPolicy(p Policy) {
	policies.Register(p.Name, func() Policy { return clonePolicy(p) })
}

// LookupPolicy returns the policy registered under name. Unknown names fall
// back to the highest-priority registered policy and ok is false.
func LookupPolicy(name string) (p Policy, ok bool) {
	if policies.Has(name) {
		return policies.Get(name), true
	}
	return policies.Best(), false
}

// Policies returns the registered variant names in sorted order.
func Policies() []string {
	names := policies.Available()
	slices.Sort(names)
	return names
}

func clonePolicy(p Policy) Policy {
	for i := range p.Chains {
		p.Chains[i] = slices.Clone(p.Chains[i])
	}
	return p
}
