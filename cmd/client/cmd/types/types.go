package types

type contextKey string

// ClientAppKey is the context key under which the initialized client
// app is passed to subcommands.
const ClientAppKey contextKey = "clientApp"
