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

// Package t3t models the NFC Forum Type 3 Tag side of a tag emulation: the
// attribute information block, the block-addressed NDEF data area behind it,
// and the service table a tag emulation layer dispatches Check and Update
// commands to.
//
// Command framing is not handled here. An Emulation implementation parses
// reader commands and calls the registered ReadFunc and WriteFunc callbacks
// one block at a time, marking the first and last block of every command so
// the data area can lock the buffer for the duration of the transaction.
package t3t
