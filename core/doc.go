// Package core defines the conversational data model shared by the agent
// loop, the session stores and the model adapters: role-based content parts,
// function call/response payloads, immutable turns and sessions.
package core
