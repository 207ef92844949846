package workflow

import "github.com/SAP-F-2025/login-approval-service/internal/models"

// ProviderPolicy tells what an approval means for access, per provider.
type ProviderPolicy struct {
	AutoGrantOnApproval       bool
	RequiresFinalVerification bool
}

// PolicyFor returns the access policy for a provider. Google logins feed a
// downstream provisioning step and need a separate final confirmation.
func PolicyFor(provider models.AuthProvider) ProviderPolicy {
	if provider == models.ProviderGoogle {
		return ProviderPolicy{AutoGrantOnApproval: false, RequiresFinalVerification: true}
	}
	return ProviderPolicy{AutoGrantOnApproval: true, RequiresFinalVerification: false}
}

// FillIfAbsent keeps an existing non-empty value and only fills an empty one.
func FillIfAbsent(existing *string, candidate string) *string {
	if existing != nil && *existing != "" {
		return existing
	}
	if candidate == "" {
		return existing
	}
	return &candidate
}

// PreferIncoming takes the incoming value when present, else keeps the existing one.
func PreferIncoming(incoming, existing *string) *string {
	if incoming != nil && *incoming != "" {
		return incoming
	}
	return existing
}
