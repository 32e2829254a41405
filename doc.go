/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package aries is a DIDComm messaging agent core.
//
// Packages for end developer usage
//
// pkg/framework/aries: composes the agent from options. Its context is handed to transports and handlers.
//
// pkg/didcomm/dispatcher: routes unpacked messages to the handlers registered for their type.
//
// pkg/didcomm/dispatcher/outbound: packs and delivers messages to the services of a connection.
//
// pkg/vdr/peer: creates and resolves peer DIDs.
//
// Basic workflow
//
//  1. Create an agent with aries.New, passing transports and handlers as options.
//  2. Save connection records with Connections().
//  3. Send with MessageSender(), receive through the inbound transports or ReceiveMessage.
//  4. Call Close() to release resources.
package aries
