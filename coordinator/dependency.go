package coordinator

import "github.com/ethereum/go-ethereum/common"

// dependencyMap is D from the spec: which engine is currently
// responsible for each address touched so far in the current block.
// It is consulted and mutated only by the coordinator's single
// routing goroutine, so it needs no lock of its own.
type dependencyMap map[common.Address]int

func newDependencyMap() dependencyMap {
	return make(dependencyMap)
}

// route implements the §4.3.1 routing policy. It returns the engine
// index transact(i) should be sent to, mutating d and bestThread as a
// side effect, and performing any cache migration the split-dependency
// case requires via migrate.
//
// migrate is called only in the Case-3-split branch, with the address
// to move, its current owning engine, and its destination engine.
func (d dependencyMap) route(sender common.Address, target *common.Address, bestThread *int, poolSize int, migrate func(addr common.Address, from, to int)) int {
	eS, sBound := d[sender]
	var eT int
	var tBound bool
	if target != nil {
		eT, tBound = d[*target]
	}

	var execTid int
	insertSender, insertTarget := false, false

	switch {
	case !sBound && !tBound:
		// Case 0: no static dependency at all.
		execTid = *bestThread
		insertSender = true
		insertTarget = target != nil

	case sBound && !tBound:
		// Case 1: sender-only.
		execTid = eS
		insertTarget = target != nil

	case !sBound && tBound:
		// Case 2: target-only.
		execTid = eT
		insertSender = true

	case sBound && tBound && eS == eT:
		// Case 3, same engine: nothing to insert, nothing to migrate.
		execTid = eS

	default:
		// Case 3, split: sender and target are bound to different
		// engines. The receiver's engine wins (contracts tend to
		// accumulate more state per touch than EOA senders, so
		// migrating the sender's smaller cache entry is cheaper).
		execTid = eT
		migrate(sender, eS, eT)
		insertSender = true
	}

	if insertSender {
		d[sender] = execTid
	}
	if insertTarget {
		d[*target] = execTid
	}

	if *bestThread == execTid {
		*bestThread = (*bestThread + 1) % poolSize
	}
	return execTid
}
