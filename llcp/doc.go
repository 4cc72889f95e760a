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

// Package llcp carries PHDC APDUs over a connection-oriented NFC data link.
//
// A link delivers information PDUs of at most MIU bytes and says nothing
// about where one APDU ends. Each APDU is therefore sent as a two byte big
// endian length followed by the APDU, cut into MIU-sized segments; the
// receiver reads the length from the first segment and accumulates until
// the message is complete.
package llcp
