// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package phdc implements the agent side of Personal Health Device
// Communication over NFC.
//
// A TagAgent exchanges IEEE 11073-20601 APDUs with a PHDC manager through
// the NDEF data area of an emulated Type 3 Tag. The manager writes a PHD
// record into the area; the agent extracts it, consumes the slot and
// publishes the application's reply for the manager's next read. A rolling
// four bit message counter shared by both directions keeps the two sides
// taking turns.
//
// The application side is a pair of queues:
//
//	agent.Send(apdu)
//	reply := agent.Receive(5 * time.Second)
//
// See the llcp package for the same exchange over a connection-oriented
// link.
package phdc
