//go:build !azure

package speechgate

import (
	"errors"

	"github.com/harunnryd/speechgate/pkg/adapters/stt"
	"github.com/harunnryd/speechgate/pkg/adapters/tts"
)

// ErrAzureNotBuilt is returned when azure is configured in a binary built
// without the azure tag, which needs the native Speech SDK.
var ErrAzureNotBuilt = errors.New("azure provider not built in: rebuild with -tags azure")

func registerAzure(reg *ProviderRegistry) {
	reg.RegisterSTT("azure", func(Config) (stt.Factory, error) { return nil, ErrAzureNotBuilt })
	reg.RegisterTTS("azure", func(Config) (tts.Factory, error) { return nil, ErrAzureNotBuilt })
}
