package nodes

import "github.com/vk/easywork/internal/nodefactory"

// RegisterAll installs every sample node class in f, for callers that want
// the full library in one call rather than picking classes individually.
func RegisterAll(f *nodefactory.Factory) error {
	registrars := []func(*nodefactory.Factory) error{
		RegisterCounter,
		RegisterMultiply,
		RegisterJoinBack,
		RegisterToText,
		RegisterSink,
		RegisterPairEmitter,
		RegisterGate,
		RegisterConfigNode,
		RegisterSocketSinkNode,
	}
	for _, register := range registrars {
		if err := register(f); err != nil {
			return err
		}
	}
	return nil
}
