//go:build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	onnxInputs  = []string{"input_ids", "attention_mask", "token_type_ids"}
	onnxOutputs = []string{"output"}
)

// onnxTensors are the fixed-shape buffers bound to a session. Each Run reads
// the inputs and overwrites the output in place.
type onnxTensors struct {
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

func newONNXTensors(maxTokens, dimensions int) (*onnxTensors, error) {
	t := &onnxTensors{}
	inShape := ort.NewShape(1, int64(maxTokens))
	var err error
	if t.inputIDs, err = ort.NewEmptyTensor[int64](inShape); err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	if t.attentionMask, err = ort.NewEmptyTensor[int64](inShape); err != nil {
		t.destroy()
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	if t.tokenTypeIDs, err = ort.NewEmptyTensor[int64](inShape); err != nil {
		t.destroy()
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	if t.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions))); err != nil {
		t.destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	return t, nil
}

func (t *onnxTensors) inputs() []ort.ArbitraryTensor {
	return []ort.ArbitraryTensor{t.inputIDs, t.attentionMask, t.tokenTypeIDs}
}

func (t *onnxTensors) load(ids, mask, types []int64) {
	copy(t.inputIDs.GetData(), ids)
	copy(t.attentionMask.GetData(), mask)
	copy(t.tokenTypeIDs.GetData(), types)
}

func (t *onnxTensors) destroy() {
	if t.inputIDs != nil {
		_ = t.inputIDs.Destroy()
	}
	if t.attentionMask != nil {
		_ = t.attentionMask.Destroy()
	}
	if t.tokenTypeIDs != nil {
		_ = t.tokenTypeIDs.Destroy()
	}
	if t.output != nil {
		_ = t.output.Destroy()
	}
}

// ONNXEmbedder runs a sentence-embedding model locally through ONNX Runtime.
// It needs cgo and the onnxruntime shared library. The model must take BERT
// inputs and emit a pooled [1, dimensions] "output".
type ONNXEmbedder struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	tensors    *onnxTensors
	tokenizer  Tokenizer
	dimensions int
	maxTokens  int
}

// NewONNXEmbedder loads the model at modelPath, initializing the runtime on
// first use.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if dimensions <= 0 || maxTokens < 2 {
		return nil, fmt.Errorf("invalid onnx shape: dimensions=%d max_tokens=%d", dimensions, maxTokens)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}
	tensors, err := newONNXTensors(maxTokens, dimensions)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewAdvancedSession(modelPath, onnxInputs, onnxOutputs,
		tensors.inputs(), []ort.ArbitraryTensor{tensors.output}, nil)
	if err != nil {
		tensors.destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}
	return &ONNXEmbedder{
		session:    session,
		tensors:    tensors,
		tokenizer:  HashTokenizer{},
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}, nil
}

// Embed returns the unit-length embedding of text. Calls are serialized
// because they share the session tensors.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.EmbeddingError{Err: err}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, &models.EmbeddingError{Err: errors.New("onnx session is closed")}
	}

	e.tensors.load(e.tokenizer.Tokenize(text, e.maxTokens))
	if err := e.session.Run(); err != nil {
		return nil, &models.EmbeddingError{Err: fmt.Errorf("inference failed: %w", err)}
	}
	vec := append([]float32(nil), e.tensors.output.GetData()...)
	if err := checkDimensions(vec, e.dimensions); err != nil {
		return nil, err
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

// Close releases the session and its tensors. It is safe to call twice.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.tensors != nil {
		e.tensors.destroy()
		e.tensors = nil
	}
	return err
}
