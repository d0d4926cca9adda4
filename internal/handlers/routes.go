package handlers

import "icr-prover/pkg/rest"

func (h *Handler) Routes() []rest.Route {
	return []rest.Route{
		rest.NewRoute(rest.POST, "v1", "prove_icr", h.ProveIcr),
		rest.NewRoute(rest.POST, "v1", "execute_icr", h.ExecuteIcr),
		rest.NewRoute(rest.POST, "v1", "verify", h.Verify),
		rest.NewRoute(rest.GET, "v1", "vkey/:system", h.VerifyingKey),
		rest.NewRoute(rest.GET, "v1", "verifier/:system", h.Verifier),
		rest.NewRoute(rest.GET, "v1", "proofs/:address", h.GetProofs),

		// path used by existing clients
		rest.NewRoute(rest.POST, "", "prove_icr", h.ProveIcr),
	}
}
