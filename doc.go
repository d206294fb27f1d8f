// Package peripheral provides a Bluetooth Low Energy peripheral
// engine: a GATT server and advertiser that a platform binding drives.
//
// The engine does not talk to a radio itself. A Host implementation
// wraps the platform Bluetooth stack; it forwards radio state changes,
// central connections and attribute requests to the Device, and the
// Device calls back into the Host to advertise and to notify.
//
// STATUS
//
// Serving attributes is complete: services, characteristics and
// descriptors, reads, writes, long (prepared) writes, write batches,
// subscriptions and notifications with back-pressure. Advertising
// supports legacy advertisements and extended advertising sets.
//
// USAGE
//
// A Device is constructed on a Host, populated with services and
// characteristics, and then started.
//
//     dev := peripheral.NewDevice(host, peripheral.Name("gophergatt"))
//     svc := peripheral.MustParseUUID("09fc95c0-c111-11e3-9904-0002a5d5c51b")
//     dev.AddService(svc, true)
//
//     // A read/write characteristic
//     rw := peripheral.MustParseUUID("11fac9e0-c111-11e3-9246-0002a5d5c51b")
//     dev.AddCharacteristic(svc, rw,
//     	ble.CharRead|ble.CharWrite,
//     	peripheral.PermRead|peripheral.PermWrite,
//     	[]byte("hello"))
//
//     // A notify characteristic, updated by the application
//     n := peripheral.MustParseUUID("1c927b50-c116-11e3-8a33-0800200c9a66")
//     dev.AddCharacteristic(svc, n, ble.CharNotify, peripheral.PermRead, nil)
//
//     if err := dev.Start(ctx); err != nil {
//     	log.Fatal(err)
//     }
//     if err := dev.StartAdvertising(ctx, peripheral.AdvertisingConfig{Connectable: true}); err != nil {
//     	log.Fatal(err)
//     }
//     ok, err := dev.UpdateCharacteristic(ctx, svc, n, []byte{0x01})
//
// Writes from centrals are reported as events; see package event.
//
// Characteristics that can notify or indicate get a Client
// Characteristic Configuration descriptor. Its value is kept per
// central and writing it subscribes or unsubscribes that central.
//
// Long writes are staged per central and request id, at most
// DefaultPrepareQueueCapacity at a time, and only touch the attribute
// when executed. A central disconnecting drops its staged writes.
//
// REFERENCES
//
// To try out a peripheral, use the gattsim command, which runs one on
// an in-memory host (package sim) and prints every event.
package peripheral
