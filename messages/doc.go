// Package messages defines the vendor-neutral conversation model shared by every
// provider adapter and by the executor loop.
//
// Design decisions:
//   - Nullable fields: content, name and tool call id are pointers so an absent value
//     is distinguishable from an empty one, matching the vendor wire formats
//   - Closed role set: Role is a small string enum; each adapter owns the table that
//     maps it to and from the vendor tokens
//   - Construction-time validation: function names are checked when the Function is
//     built, so a bad name never reaches the network
//   - Structured arguments: tool parameters stay raw JSON until a handler decodes them
//
// Key concepts:
//   - Message: one turn in a conversation (system, user, assistant or tool reply)
//   - Tool: an invocation the model asked for, carrying its id, name and arguments
//   - Function: a callable the caller declares to the model, with a JSON schema
//
// Example usage:
//
//	history := []messages.Message{
//	    messages.System("You are a helpful assistant"),
//	    messages.User("What's the weather in Athens?"),
//	}
//
//	weather := messages.MustFunction("get_weather", "Current weather for a city", schema)
//
// The executor appends to a history like the one above, one message per turn,
// and never rewrites earlier entries.
package messages
