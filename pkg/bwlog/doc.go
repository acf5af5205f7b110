// Package bwlog follows a Minecraft client log and keeps a roster of the
// Hypixel Bedwars players worth looking up.
//
// This package allows you to:
//   - Classify client log lines into typed events
//   - Follow the newest client log in real-time, switching clients on the fly
//   - Track who is in your lobby, party and online guild
//   - Replay a finished log offline with its own timestamps
//
// # Basic Usage
//
// To follow the newest client log:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	notes, errs, err := bwlog.WatchWithOptions(ctx,
//	    bwlog.WithSelfUsername("Steve"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for {
//	    select {
//	    case n, ok := <-notes:
//	        if !ok {
//	            return
//	        }
//	        if n.Kind == bwlog.KindRosterChanged {
//	            fmt.Println("roster:", n.Names)
//	        }
//	    case err, ok := <-errs:
//	        if !ok {
//	            return
//	        }
//	        log.Printf("error: %v", err)
//	    }
//	}
//
// To classify a single line:
//
//	ev := bwlog.ClassifyLine(line, bwlog.LineState{SelfUsername: "Steve"})
//
// # Roster
//
// Each name on the roster carries the reasons it is there: a /who
// listing, the party, the online guild, a pending invite, a chat trigger
// or a manual Track. A name leaves the roster when its last reason goes.
// Invites expire after 60 seconds, guild listings without a footer end
// after 5 seconds and the game starts 1.1 seconds after the countdown
// line; these timers run inside the session goroutine.
//
// # Chat Triggers
//
// Chatters can be tracked by regular expression, see the [trigger]
// subpackage:
//
//	m, err := trigger.NewFromFile("triggers.yaml")
//	s, err := bwlog.NewSession(bwlog.WithTriggers(m))
//
// # Disclaimer
//
// This is an unofficial tool and is not affiliated with Hypixel or Mojang.
package bwlog
