package httpapi

import (
	"github.com/thesecretlab-dev/zeroid/internal/issuer"
	"github.com/thesecretlab-dev/zeroid/internal/verification"
	"github.com/thesecretlab-dev/zeroid/internal/verifier"
)

// handlers groups the service-layer collaborators every route needs.
type handlers struct {
	issuer       *issuer.Service
	verifier     *verifier.Service
	verification *verification.Store
}
