// Package agentscope provides a ReAct agent whose conversation memory
// compresses itself.
//
// An Agent keeps its conversation in a memory.Memory. Before every reasoning
// step it asks its compression.Compressor whether the uncompressed part of
// the conversation has grown past the trigger threshold; if so, older turns
// are summarized by a (possibly cheaper) model, marked compressed and
// replaced in the prompt by the summary. The original messages stay in the
// store.
//
// # Quick Start
//
//	chat, _ := anthropic.New(anthropic.Config{Model: "claude-sonnet-4-5"})
//	summarizer, _ := anthropic.New(anthropic.Config{Model: "claude-haiku-4-5"})
//
//	cc := compression.DefaultConfig()
//	cc.Model = summarizer
//	cc.TriggerThreshold = 60_000
//
//	agent, err := agentscope.New(
//	    agentscope.Config{
//	        Name:         "Friday",
//	        SystemPrompt: "You are a helpful assistant named Friday.",
//	        Model:        chat,
//	    },
//	    agentscope.WithCompression(cc),
//	    agentscope.WithTools(weatherTool),
//	)
//
//	reply, err := agent.Reply(ctx, types.NewUserMsg("user", "What's the weather in Oslo?"))
//
// # Memory
//
// Memory defaults to memory.NewInMemory. The redismem and sqlmem packages
// provide stores shared between processes:
//
//	mem := redismem.New(client, redismem.WithSessionID("user-42"))
//	agent, _ := agentscope.New(agentscope.Config{..., Memory: mem})
//
// The prompt of each reasoning step is
//
//	mem.GetMemory(ctx, memory.WithExcludeMark(memory.MarkCompressed))
//
// that is, the summary as a system message followed by the messages that
// were never compressed.
//
// # Compression failures
//
// Compression never fails a reply. A failed or cancelled compression leaves
// memory untouched, is logged and reported to the after-compression hooks,
// and is retried on the next reasoning step.
//
// # Sessions
//
// Agents with a stateful memory implement memory.Stateful and can be saved
// with the session package:
//
//	saver := session.NewJSONSaver("./sessions")
//	_ = session.SaveModules(ctx, saver, "user-42", map[string]memory.Stateful{"friday": agent})
package agentscope
