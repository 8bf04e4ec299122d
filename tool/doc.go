/*
Package tool turns plain Go functions into functions a model can call.

A Definition wraps a function and derives the JSON schema of its arguments by
reflection. Parameters are exposed as param0, param1 and so on unless named with
the Parameters option. A function that takes a single struct (besides an optional
context.Context) exposes the fields of that struct as the arguments object.

# Usage

	def := tool.Must(func(city string, days int) (string, error) {
		return forecast(city, days)
	},
		tool.Name("get_forecast"),
		tool.Description("Weather forecast for a city"),
		tool.Parameters("city", "days"),
	)

	reg := tool.NewRegistry(def)
	out, err := reg.Execute(ctx, messages.Tool{Name: "get_forecast", Parameters: json.RawMessage(`{"city":"Lima","days":2}`)})

A context.Context parameter receives the context passed to Execute.

Results are rendered as text: strings as-is, times as RFC3339, numbers and booleans
in their decimal form, encoding.TextMarshaler and fmt.Stringer through their methods
and everything else as JSON. A non-nil error return fails the call.

Registry is safe for concurrent use and implements Executor.
*/
package tool
