package wakeword

import (
	"errors"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// session is one ONNX model bound to fixed input and output tensors.
type session struct {
	in   *ort.Tensor[float32]
	out  *ort.Tensor[float32]
	sess *ort.AdvancedSession
}

func newSession(path string, in, out ort.Shape) (*session, error) {
	inT, err := ort.NewEmptyTensor[float32](in)
	if err != nil {
		return nil, err
	}
	outT, err := ort.NewEmptyTensor[float32](out)
	if err != nil {
		_ = inT.Destroy()
		return nil, err
	}
	inInfo, outInfo, err := ort.GetInputOutputInfo(path)
	if err != nil {
		_ = inT.Destroy()
		_ = outT.Destroy()
		return nil, err
	}
	s, err := ort.NewAdvancedSession(path,
		[]string{inInfo[0].Name}, []string{outInfo[0].Name},
		[]ort.Value{inT}, []ort.Value{outT}, nil)
	if err != nil {
		_ = inT.Destroy()
		_ = outT.Destroy()
		return nil, err
	}
	return &session{in: inT, out: outT, sess: s}, nil
}

func (s *session) run(input func([]float32)) ([]float32, error) {
	input(s.in.GetData())
	if err := s.sess.Run(); err != nil {
		return nil, err
	}
	return s.out.GetData(), nil
}

func (s *session) close() error {
	return errors.Join(s.sess.Destroy(), s.in.Destroy(), s.out.Destroy())
}

// models is the three-stage openWakeWord chain on ONNX Runtime.
type models struct {
	log      *logger.Logger
	melspec  *session
	embed    *session
	wakeword *session
}

var _ inference = (*models)(nil)

func openModels(cfg Config, log *logger.Logger) (inference, error) {
	log.Debug("wakeword: initializing ONNX runtime (lib=%s)", cfg.OnnxLib)
	ort.SetSharedLibraryPath(cfg.OnnxLib)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, err
	}

	m := &models{log: log}
	var err error
	if m.melspec, err = newSession(cfg.MelspecModel,
		ort.NewShape(1, chunkSamples), ort.NewShape(1, 1, nMelFrames, melBins)); err != nil {
		m.Close()
		return nil, err
	}
	if m.embed, err = newSession(cfg.EmbeddingModel,
		ort.NewShape(1, melWindowSize, melBins, 1), ort.NewShape(1, 1, 1, embeddingDim)); err != nil {
		m.Close()
		return nil, err
	}
	if m.wakeword, err = newSession(cfg.WakewordModel,
		ort.NewShape(1, nEmbedFrames, embeddingDim), ort.NewShape(1, 1)); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *models) Melspec(chunk []int16) ([]float32, error) {
	return m.melspec.run(func(in []float32) {
		for i, v := range chunk {
			in[i] = float32(v)
		}
	})
}

func (m *models) Embed(mel []float32) ([]float32, error) {
	return m.embed.run(func(in []float32) { copy(in, mel) })
}

func (m *models) Score(embeddings []float32) (float32, error) {
	out, err := m.wakeword.run(func(in []float32) { copy(in, embeddings) })
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Close releases every session and the runtime environment.
func (m *models) Close() {
	for _, s := range []*session{m.wakeword, m.embed, m.melspec} {
		if s == nil {
			continue
		}
		if err := s.close(); err != nil {
			m.log.Warn("wakeword: release session: %v", err)
		}
	}
	if err := ort.DestroyEnvironment(); err != nil {
		m.log.Warn("wakeword: destroy environment: %v", err)
	}
}
