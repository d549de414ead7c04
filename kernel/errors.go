package kernel

import "memcore/merr"

func missingOffset(op, field string) error {
	return merr.New(merr.NotFound, op, "offset table has no entry for \""+field+"\"")
}
