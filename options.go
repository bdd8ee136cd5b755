package stacks

// Options configures a Library.
type Options struct {
	Stores    []Store
	Factories []Factory
}

// Option is a functional option for configuring New.
type Option func(*Options)

// WithStores appends root stores. Later stores win ties when loading.
func WithStores(stores ...Store) Option {
	return func(o *Options) { o.Stores = append(o.Stores, stores...) }
}

// WithFactories appends nested store factories in priority order.
func WithFactories(factories ...Factory) Option {
	return func(o *Options) { o.Factories = append(o.Factories, factories...) }
}

// WithDefaultFactories registers factories for every archive format this
// module understands: zip, image tarballs and tar (plain, gzip, zstd).
// Image tarballs are tried before plain tar since both end in ".tar".
func WithDefaultFactories() Option {
	return WithFactories(ZipFactory(), ImageFactory(), TarFactory())
}
