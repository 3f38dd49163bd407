// Copyright 2025 Interlayer Labs
//
// Minimal ad hoc ABI fragments for the mailbox/ISM/merkle-tree-hook/
// validator-announce methods the relayer needs, packed and unpacked the
// way the teacher's pkg/ethereum/client.go does ad hoc contract calls --
// no generated bindings, just abi.JSON + Pack/Unpack.
package evm

const mailboxABI = `[
 {"name":"count","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint32"}]},
 {"name":"delivered","type":"function","stateMutability":"view","inputs":[{"type":"bytes32"}],"outputs":[{"type":"bool"}]},
 {"name":"defaultIsm","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"address"}]},
 {"name":"recipientIsm","type":"function","stateMutability":"view","inputs":[{"type":"address"}],"outputs":[{"type":"address"}]},
 {"name":"process","type":"function","stateMutability":"nonpayable","inputs":[{"type":"bytes"},{"type":"bytes"}],"outputs":[]}
]`

const ismABI = `[
 {"name":"moduleType","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]},
 {"name":"route","type":"function","stateMutability":"view","inputs":[{"type":"bytes"}],"outputs":[{"type":"address"}]},
 {"name":"modulesAndThreshold","type":"function","stateMutability":"view","inputs":[{"type":"bytes"}],"outputs":[{"type":"address[]"},{"type":"uint8"}]},
 {"name":"validatorsAndThreshold","type":"function","stateMutability":"view","inputs":[{"type":"bytes"}],"outputs":[{"type":"address[]"},{"type":"uint8"}]},
 {"name":"getOffchainVerifyInfo","type":"function","stateMutability":"view","inputs":[{"type":"bytes"}],"outputs":[{"type":"string[]"}]},
 {"name":"verify","type":"function","stateMutability":"view","inputs":[{"type":"bytes"},{"type":"bytes"}],"outputs":[{"type":"bool"}]}
]`

const merkleTreeHookABI = `[
 {"name":"count","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint32"}]},
 {"name":"root","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"bytes32"}]},
 {"name":"latestCheckpoint","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"bytes32"},{"type":"uint32"}]}
]`

const validatorAnnounceABI = `[
 {"name":"getAnnouncedStorageLocations","type":"function","stateMutability":"view","inputs":[{"type":"address[]"}],"outputs":[{"type":"string[][]"}]}
]`

// eventsABI holds the non-indexed event argument layouts the indexer needs
// to unpack log data; indexed fields are read straight off the topics.
const eventsABI = `[
 {"name":"Dispatch","type":"event","anonymous":false,"inputs":[
   {"name":"sender","type":"address","indexed":true},
   {"name":"destination","type":"uint32","indexed":true},
   {"name":"recipient","type":"bytes32","indexed":true},
   {"name":"message","type":"bytes","indexed":false}
 ]},
 {"name":"GasPayment","type":"event","anonymous":false,"inputs":[
   {"name":"messageId","type":"bytes32","indexed":true},
   {"name":"destinationDomain","type":"uint32","indexed":false},
   {"name":"gasAmount","type":"uint256","indexed":false},
   {"name":"payment","type":"uint256","indexed":false}
 ]},
 {"name":"InsertedIntoTree","type":"event","anonymous":false,"inputs":[
   {"name":"messageId","type":"bytes32","indexed":false},
   {"name":"index","type":"uint32","indexed":false}
 ]},
 {"name":"ValidatorAnnouncement","type":"event","anonymous":false,"inputs":[
   {"name":"validator","type":"address","indexed":true},
   {"name":"storageLocation","type":"string","indexed":false}
 ]}
]`

// Event signatures (topic0 = keccak256 of these) used by the indexer to
// filter logs per EventKind.
const (
	DispatchEventSig           = "Dispatch(address,uint32,bytes32,bytes)"
	DispatchIdEventSig         = "DispatchId(bytes32)"
	ProcessIdEventSig          = "ProcessId(bytes32)"
	GasPaymentEventSig         = "GasPayment(bytes32,uint32,uint256,uint256)"
	InsertedIntoTreeEventSig   = "InsertedIntoTree(bytes32,uint32)"
	ValidatorAnnouncementEventSig = "ValidatorAnnouncement(address,string)"
)
