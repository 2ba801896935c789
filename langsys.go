// Package langsys localizes HTML documents against the Langsys translation service.
//
// Langsys extracts user-visible strings from HTML, groups them into phrases and
// content-addressed content blocks, looks them up in a cached translation map,
// applies the translations in place and registers anything new so translators
// can pick it up.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/langsys/client"
//	    "github.com/ZaguanLabs/langsys/config"
//	)
//
//	func main() {
//	    cfg, err := config.Load("")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    c, err := client.New(cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer c.Close(context.Background())
//
//	    out, err := c.TranslatePage(context.Background(), page, "es-mx",
//	        client.WithCategory("marketing"),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(out)
//	}
package langsys
