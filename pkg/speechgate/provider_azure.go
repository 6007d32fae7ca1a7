//go:build azure

package speechgate

import (
	"github.com/harunnryd/speechgate/pkg/adapters/stt"
	"github.com/harunnryd/speechgate/pkg/adapters/tts"
	"github.com/harunnryd/speechgate/pkg/configutil"
	"github.com/harunnryd/speechgate/pkg/providers/azure"
)

func registerAzure(reg *ProviderRegistry) {
	reg.RegisterSTT("azure", buildAzureSTT)
	reg.RegisterTTS("azure", buildAzureTTS)
}

func buildAzureSTT(cfg Config) (stt.Factory, error) {
	if err := configutil.Validate("vendors.stt.settings", cfg.Vendors.STT.Settings, configutil.Schema{}); err != nil {
		return nil, err
	}
	return azure.RecognizerFactory, nil
}

func buildAzureTTS(cfg Config) (tts.Factory, error) {
	if err := configutil.Validate("vendors.tts.settings", cfg.Vendors.TTS.Settings, configutil.Schema{}); err != nil {
		return nil, err
	}
	return azure.SynthesizerFactory, nil
}
