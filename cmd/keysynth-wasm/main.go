//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-keysynth/preset"
	"github.com/cwbudde/algo-keysynth/synth"
)

// Largest block handed to JavaScript in one call (one AudioWorklet quantum).
const maxFrames = 128

var (
	globalEngine *synth.Engine
	outputBuffer []float32
)

func main() {
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmNoteOn", js.FuncOf(wasmNoteOn))
	js.Global().Set("wasmNoteOff", js.FuncOf(wasmNoteOff))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmStats", js.FuncOf(wasmStats))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM keysynth module loaded")
	<-c
}

// wasmInit(sampleRate, presetJSON?) creates the engine. It returns an error
// string, or null on success.
func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return "missing sample rate"
	}
	pr := preset.Default()
	if len(args) > 1 && args[1].Type() == js.TypeString {
		var f preset.File
		if err := json.Unmarshal([]byte(args[1].String()), &f); err != nil {
			return err.Error()
		}
		if err := preset.ApplyFile(pr, &f); err != nil {
			return err.Error()
		}
	}
	// The AudioContext decides rate and quantum.
	pr.Params.SampleRate = args[0].Int()
	pr.Params.BlockSize = maxFrames

	e, err := synth.NewEngine(pr.Params)
	if err != nil {
		return err.Error()
	}
	globalEngine = e
	outputBuffer = make([]float32, maxFrames)

	println("Synth initialized at", pr.Params.SampleRate, "Hz,", pr.Params.Polyphony, "voices")
	return nil
}

func wasmNoteOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalEngine == nil {
		return nil
	}
	if err := globalEngine.NoteOn(args[0].Int(), args[1].Int()); err != nil {
		return err.Error()
	}
	return nil
}

func wasmNoteOff(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalEngine == nil {
		return nil
	}
	if err := globalEngine.NoteOff(args[0].Int()); err != nil {
		return err.Error()
	}
	return nil
}

// wasmProcessBlock(numFrames) renders into the shared mono buffer and
// returns its address in linear memory.
func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalEngine == nil {
		return 0
	}
	numFrames := min(max(args[0].Int(), 0), maxFrames)
	globalEngine.Process(outputBuffer[:numFrames])

	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmStats(this js.Value, args []js.Value) interface{} {
	if globalEngine == nil {
		return nil
	}
	s := globalEngine.Stats()
	return js.ValueOf(map[string]interface{}{
		"blocks":       int(s.Blocks),
		"overruns":     int(s.Overruns),
		"maxRenderUs":  int(s.MaxRender.Microseconds()),
		"activeVoices": s.ActiveVoices,
		"steals":       int(s.Steals),
		"dropped":      int(s.DroppedEvents),
	})
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
