package commandstructure

import "errors"

// stubCommand appends its suffix to the data, or fails with err when set
type stubCommand struct {
	name   string
	suffix string
	err    error
	runs   int
}

func (s *stubCommand) Name() string {
	return s.name
}

func (s *stubCommand) Execute(imageData []byte) ([]byte, error) {
	s.runs++
	if s.err != nil {
		return nil, s.err
	}
	return append(append([]byte(nil), imageData...), s.suffix...), nil
}

func stubFactory(name string) CommandFactory {
	return func(params map[string]any) (Command, error) {
		if GetBoolParam(params, "fail", false) {
			return nil, errors.New("fail requested")
		}
		return &stubCommand{name: name, suffix: GetStringParam(params, "suffix", "")}, nil
	}
}
