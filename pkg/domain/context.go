package common

type ContextKey string

const (
	// Tenancy (internal)
	TenantIDKey ContextKey = "tenant_id"
	ClientIDKey ContextKey = "client_id"
	GroupIDKey  ContextKey = "group_id"
	UserIDKey   ContextKey = "user_id"

	// Parameters
	GameIDParamKey   ContextKey = "game_id"
	PlayerIDParamKey ContextKey = "player_id"

	// Request (ie: msg header, meta)
	RequestIDKey            ContextKey = "x-request-id"
	ResourceOwnerIDParamKey ContextKey = "x-reso-id"

	// Authentication/authorization, populated by the connection layer once a
	// Protocol handshake has identified the player (out of scope here: see
	// Non-goals, the Protocol/Connection abstractions are consumed, not built).
	AuthenticatedKey ContextKey = "authenticated"
	AudienceKey      ContextKey = "audience"
)
