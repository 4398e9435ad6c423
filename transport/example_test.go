package transport_test

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/yeti/confpatch"
	"github.com/yeti/confpatch/transport"
)

func Example() {
	mfs := afero.NewMemMapFs()
	_ = afero.WriteFile(mfs, "/etc/postgresql/main/postgresql.conf", []byte("#port = 5432\t# (change requires restart)\n"), 0o644)

	res, err := confpatch.ModifyFile(context.Background(), transport.NewFS(mfs), "/etc/postgresql/main/postgresql.conf", []confpatch.Setting{
		confpatch.KV("port", "5433"),
		confpatch.KV("wal_level", "hot_standby"),
	}, confpatch.Options{})
	if err != nil {
		panic(err)
	}

	for _, e := range res.Events {
		if e.Changed() {
			fmt.Println(e.Kind, e.After)
		}
	}

	buf, _ := afero.ReadFile(mfs, "/etc/postgresql/main/postgresql.conf.bak")
	fmt.Printf("backup: %q\n", buf)

	// Output:
	// replaced port = 5433	# (change requires restart)
	// appended wal_level = hot_standby
	// backup: "#port = 5432\t# (change requires restart)\n"
}
