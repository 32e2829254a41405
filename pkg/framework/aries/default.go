/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	transportfactory "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/factory/transport"
)

// defFrameworkOpts provides default framework options.
func defFrameworkOpts(frameworkOpts *Aries) error {
	frameworkOpts.config = frameworkOpts.config.withDefaults()

	if len(frameworkOpts.outboundTransports) == 0 {
		transports, err := transportfactory.NewProviderFactory().
			CreateOutboundTransports(frameworkOpts.config.Transports...)
		if err != nil {
			return fmt.Errorf("outbound transport initialization failed: %w", err)
		}

		frameworkOpts.outboundTransports = transports
	}

	if frameworkOpts.storeProvider == nil {
		frameworkOpts.storeProvider = storeProvider()
	}

	return nil
}

func storeProvider() storage.Provider {
	return mem.NewProvider()
}
