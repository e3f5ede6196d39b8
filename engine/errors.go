package engine

import "github.com/parquedb/parquedb/internal/xerrors"

func errMissingType(op string) error {
	return xerrors.New(xerrors.InvalidInput, op, "missing required field $type")
}

func errMissingName(op string) error {
	return xerrors.New(xerrors.InvalidInput, op, "missing required field name")
}

func errNotFound(op, ns, id string) error {
	return xerrors.Newf(xerrors.NotFound, op, "%s/%s not found", ns, id)
}

func errVersionMismatch(op string, expected, actual int64) error {
	return xerrors.Newf(xerrors.VersionMismatch, op, "expected version %d, got %d", expected, actual)
}

func errTransactionActive(op string) error {
	return xerrors.New(xerrors.InvalidInput, op, "a transaction is already active on this shard")
}

func errNoTransaction(op string) error {
	return xerrors.New(xerrors.InvalidInput, op, "no transaction is active on this shard")
}

func errInvalidSimilarity(op string) error {
	return xerrors.New(xerrors.InvalidInput, op, "similarity must be in [0,1] when present")
}

func errExactRequiresUnitSimilarity(op string) error {
	return xerrors.New(xerrors.InvalidInput, op, "matchMode=exact requires similarity in {null, 1.0}")
}
