/*
Package executor drives conversations with a provider.

RunThread keeps calling the provider until the model produces a final answer:

  - a truncated answer (FinishLength) is appended together with a user turn asking
    the model to continue,
  - tool calls (FinishTool) are executed and both the calls and one tool message per
    result are appended,
  - a final answer (FinishStop or FinishContentFilter) is appended and the history returned.

Any other finish reason, a failing tool or running out of turns ends the conversation with
an *OrchestrationError. GetJSON follows the same loop in JSON mode and returns the
concatenated content of all continued answers; tool calls are not allowed there.

	exec := executor.New(resilience.Wrap(openai.New(openai.WithAPIKey(key)), resilience.New(resilience.DefaultConfig())),
		executor.WithModel(openai.GPT4oMini),
		executor.WithTools(tools),
		executor.WithHook(executor.LoggingHook()),
	)
	history, err := exec.RunThread(ctx, []messages.Message{messages.User("What's the weather in Lima?")})
*/
package executor
