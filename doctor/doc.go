// Package doctor diagnoses whether evalcache can run and cache commands.
//
//	d := doctor.New(0,
//		doctor.NewStoreChecker(store),
//		doctor.NewProgramChecker("nix"),
//	)
//	for _, r := range d.Run(ctx) {
//		fmt.Println(r.Name, r.Result.Status, r.Result.Message)
//	}
package doctor
